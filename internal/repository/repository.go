// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned when a write targets a row that no longer exists.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a conditional update finds a newer version.
	ErrVersionConflict = errors.New("version conflict")
)

const uniqueViolation = "23505"

// DefaultTimeout bounds a single store call when the caller did not configure one.
const DefaultTimeout = 5 * time.Second

type timeouts struct {
	timeout time.Duration
}

func (t timeouts) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	d := t.timeout
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(parent, d)
}

// validID reports whether id can be compared with a UUID column. Ids that
// cannot are treated as absent rows.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validIDs drops the ids that validID rejects.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}

// isUniqueViolation recognises unique violations from both the pgx and lib/pq drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
