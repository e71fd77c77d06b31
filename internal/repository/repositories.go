package repository

import (
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	// pgxpool
	UserRepo         UserRepository
	ProjectRepo      ProjectRepository
	NotificationRepo NotificationRepository

	// sql.DB
	TaskRepo    TaskRepository
	CommentRepo CommentRepository
}

func NewRepositories(pool *pgxpool.Pool, db *sql.DB, timeout time.Duration) *Repositories {
	return &Repositories{
		UserRepo:         NewUserRepository(pool, timeout),
		ProjectRepo:      NewProjectRepository(pool, timeout),
		NotificationRepo: NewNotificationRepository(pool, timeout),

		TaskRepo:    NewTaskRepository(db, timeout),
		CommentRepo: NewCommentRepository(db, timeout),
	}
}
