package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Comment struct {
	ID        string
	Body      string
	AuthorID  string
	ProjectID string
	ParentID  *string
	Mentions  []string
	IsEdited  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CommentRepository interface {
	Create(ctx context.Context, comment *Comment) error
	FindByID(ctx context.Context, id string) (*Comment, error)
	FindByProject(ctx context.Context, projectID string) ([]*Comment, error)
	Update(ctx context.Context, comment *Comment) error
	Delete(ctx context.Context, id string) error
	DeleteReplies(ctx context.Context, parentID string) (int, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

type commentRepository struct {
	db *sql.DB
	timeouts
}

func NewCommentRepository(db *sql.DB, timeout time.Duration) CommentRepository {
	return &commentRepository{db: db, timeouts: timeouts{timeout}}
}

const commentColumns = `id, body, author_id, project_id, parent_id, mentions, is_edited, created_at, updated_at`

func scanComment(row rowScanner) (*Comment, error) {
	c := &Comment{}
	err := row.Scan(&c.ID, &c.Body, &c.AuthorID, &c.ProjectID, &c.ParentID,
		pq.Array(&c.Mentions), &c.IsEdited, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new comment
func (r *commentRepository) Create(ctx context.Context, comment *Comment) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		INSERT INTO comments (body, author_id, project_id, parent_id, mentions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_edited, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		comment.Body, comment.AuthorID, comment.ProjectID, comment.ParentID, pq.Array(comment.Mentions),
	).Scan(&comment.ID, &comment.IsEdited, &comment.CreatedAt, &comment.UpdatedAt)
}

// FindByID retrieves a comment by ID
func (r *commentRepository) FindByID(ctx context.Context, id string) (*Comment, error) {
	if !validID(id) {
		return nil, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	c, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// FindByProject retrieves all comments of a project, oldest first
func (r *commentRepository) FindByProject(ctx context.Context, projectID string) ([]*Comment, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Update replaces the body and marks the comment edited
func (r *commentRepository) Update(ctx context.Context, comment *Comment) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		UPDATE comments SET
			body = $2,
			mentions = $3,
			is_edited = TRUE,
			updated_at = NOW()
		WHERE id = $1
		RETURNING is_edited, updated_at`

	err := r.db.QueryRowContext(ctx, query, comment.ID, comment.Body, pq.Array(comment.Mentions)).
		Scan(&comment.IsEdited, &comment.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	return err
}

// DeleteReplies removes the direct replies of a comment and reports how many went.
func (r *commentRepository) DeleteReplies(ctx context.Context, parentID string) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE parent_id = $1`, parentID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteByProject removes replies before top-level comments so no reply outlives its parent.
func (r *commentRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM comments WHERE project_id = $1 AND parent_id IS NOT NULL`, projectID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE project_id = $1`, projectID)
	return err
}
