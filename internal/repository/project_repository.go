package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Project struct {
	ID          string
	Name        string
	Description *string
	OwnerID     string
	Status      string
	Deadline    *time.Time
	Members     []ProjectMember
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectMember is an explicit grant. The owner never appears here.
type ProjectMember struct {
	UserID   string
	Role     string
	JoinedAt time.Time
}

type ProjectFilter struct {
	UserID string
	Search string
	Status string
	Limit  int
	Offset int
}

type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]*Project, int, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error

	// Member operations are conditional on the project version and bump it.
	AddMember(ctx context.Context, projectID string, version int, member ProjectMember) error
	RemoveMember(ctx context.Context, projectID string, version int, userID string) error
	UpdateMemberRole(ctx context.Context, projectID string, version int, userID, role string) error
}

type pgProjectRepository struct {
	pool *pgxpool.Pool
	timeouts
}

func NewProjectRepository(pool *pgxpool.Pool, timeout time.Duration) ProjectRepository {
	return &pgProjectRepository{pool: pool, timeouts: timeouts{timeout}}
}

const projectColumns = `p.id, p.name, p.description, p.owner_id, p.status, p.deadline, p.version, p.created_at, p.updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	p := &Project{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Status, &p.Deadline,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProjectRepository) Create(ctx context.Context, project *Project) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO projects (name, description, owner_id, status, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, version, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		project.Name, project.Description, project.OwnerID, project.Status, project.Deadline,
	).Scan(&project.ID, &project.Version, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return err
	}

	for i := range project.Members {
		m := &project.Members[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO project_members (project_id, user_id, role)
			VALUES ($1, $2, $3)
			RETURNING joined_at
		`, project.ID, m.UserID, m.Role).Scan(&m.JoinedAt)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *pgProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	if !validID(id) {
		return nil, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	members, err := r.loadMembers(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Members = members[p.ID]
	return p, nil
}

// List returns the projects the filter's user can access. Search narrows that set, never widens it.
func (r *pgProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]*Project, int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	where := []string{`(p.owner_id = $1 OR EXISTS (
		SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $1))`}
	args := []interface{}{filter.UserID}

	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects p WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM projects p WHERE %s ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`,
		projectColumns, whereSQL, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []*Project
	var ids []string
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	members, err := r.loadMembers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range projects {
		p.Members = members[p.ID]
	}
	return projects, total, nil
}

func (r *pgProjectRepository) loadMembers(ctx context.Context, projectIDs []string) (map[string][]ProjectMember, error) {
	out := make(map[string][]ProjectMember, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT project_id, user_id, role, joined_at
		FROM project_members
		WHERE project_id = ANY($1::uuid[])
		ORDER BY joined_at, seq
	`, projectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var projectID string
		var m ProjectMember
		if err := rows.Scan(&projectID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out[projectID] = append(out[projectID], m)
	}
	return out, rows.Err()
}

func (r *pgProjectRepository) Update(ctx context.Context, project *Project) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		UPDATE projects
		SET name = $3, description = $4, status = $5, deadline = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		project.ID, project.Version, project.Name, project.Description, project.Status, project.Deadline,
	).Scan(&project.Version, &project.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrVersionConflict
	}
	return err
}

// Delete removes the project and its member grants in one transaction.
// Tasks and comments are removed by the caller beforehand.
func (r *pgProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM project_members WHERE project_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgProjectRepository) AddMember(ctx context.Context, projectID string, version int, member ProjectMember) error {
	return r.withVersion(ctx, projectID, version, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id, role)
			VALUES ($1, $2, $3)
		`, projectID, member.UserID, member.Role)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	})
}

func (r *pgProjectRepository) RemoveMember(ctx context.Context, projectID string, version int, userID string) error {
	return r.withVersion(ctx, projectID, version, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
		return err
	})
}

func (r *pgProjectRepository) UpdateMemberRole(ctx context.Context, projectID string, version int, userID, role string) error {
	return r.withVersion(ctx, projectID, version, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2`,
			projectID, userID, role)
		return err
	})
}

// withVersion claims the project version first so concurrent membership edits
// made against the same snapshot are rejected instead of silently interleaving.
func (r *pgProjectRepository) withVersion(ctx context.Context, projectID string, version int, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE projects SET version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`, projectID, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
