package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Notification struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	ProjectID *string
	TaskID    *string
	CommentID *string
	IsRead    bool
	CreatedAt time.Time
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	FindByUserID(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error)
	CountByUserID(ctx context.Context, userID string) (total int, unread int, err error)
	// MarkAsRead and Delete are scoped to the recipient; false means no such notification for userID.
	MarkAsRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
}

type pgNotificationRepository struct {
	pool *pgxpool.Pool
	timeouts
}

func NewNotificationRepository(pool *pgxpool.Pool, timeout time.Duration) NotificationRepository {
	return &pgNotificationRepository{pool: pool, timeouts: timeouts{timeout}}
}

func (r *pgNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		INSERT INTO notifications (user_id, type, message, project_id, task_id, comment_id, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		notification.UserID, notification.Type, notification.Message,
		notification.ProjectID, notification.TaskID, notification.CommentID, notification.IsRead,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *pgNotificationRepository) FindByUserID(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, type, message, project_id, task_id, comment_id, is_read, created_at
		FROM notifications WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Message, &n.ProjectID, &n.TaskID, &n.CommentID, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *pgNotificationRepository) CountByUserID(ctx context.Context, userID string) (total int, unread int, err error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_read = FALSE) AS unread
		FROM notifications WHERE user_id = $1
	`
	err = r.pool.QueryRow(ctx, query, userID).Scan(&total, &unread)
	return
}

func (r *pgNotificationRepository) MarkAsRead(ctx context.Context, id, userID string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var found string
	err := r.pool.QueryRow(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 RETURNING id`, id, userID,
	).Scan(&found)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *pgNotificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgNotificationRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
