package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*User, error)
	Count(ctx context.Context) (int, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type pgUserRepository struct {
	pool *pgxpool.Pool
	timeouts
}

func NewUserRepository(pool *pgxpool.Pool, timeout time.Duration) UserRepository {
	return &pgUserRepository{pool: pool, timeouts: timeouts{timeout}}
}

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *User) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		strings.ToLower(user.Email), user.Name, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if !validID(id) {
		return nil, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// FindByIDs is the batched lookup used for read-side hydration.
func (r *pgUserRepository) FindByIDs(ctx context.Context, ids []string) ([]*User, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	return err
}
