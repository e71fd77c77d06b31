package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

type Task struct {
	ID          string
	Title       string
	Description *string
	DueDate     *time.Time
	Status      string
	Priority    string
	AssigneeID  *string
	ProjectID   string
	CreatedBy   string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFilter narrows a project's task list. Empty fields match everything.
type TaskFilter struct {
	ProjectID  string
	Statuses   []string
	Priority   string
	AssigneeID string
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
	DeleteByProject(ctx context.Context, projectID string) error

	CountByStatus(ctx context.Context, projectID string) (map[string]int, error)
	OpenDueDates(ctx context.Context, projectID, excludeStatus string) ([]time.Time, error)
	FindDueForReminder(ctx context.Context, after, before time.Time, excludeStatus string) ([]*Task, error)
}

type taskRepository struct {
	db *sql.DB
	timeouts
}

// NewTaskRepository creates a TaskRepository backed by database/sql.
func NewTaskRepository(db *sql.DB, timeout time.Duration) TaskRepository {
	return &taskRepository{db: db, timeouts: timeouts{timeout}}
}

const taskColumns = `id, title, description, due_date, status, priority, assignee_id, project_id,
	created_by, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Status, &t.Priority,
		&t.AssigneeID, &t.ProjectID, &t.CreatedBy, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]*Task, error) {
	defer rows.Close()
	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Create inserts a new task
func (r *taskRepository) Create(ctx context.Context, task *Task) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		INSERT INTO tasks (
			title, description, due_date, status, priority, assignee_id, project_id, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		task.Title, task.Description, task.DueDate, task.Status, task.Priority,
		task.AssigneeID, task.ProjectID, task.CreatedBy,
	).Scan(&task.ID, &task.Version, &task.CreatedAt, &task.UpdatedAt)
}

// FindByID retrieves a task by ID
func (r *taskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	if !validID(id) {
		return nil, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// List returns a project's tasks, newest first.
func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	if !validID(filter.ProjectID) || (filter.AssigneeID != "" && !validID(filter.AssigneeID)) {
		return nil, nil
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	where := []string{"project_id = $1"}
	args := []interface{}{filter.ProjectID}

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(filter.Statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		where = append(where, fmt.Sprintf("assignee_id = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

// Update writes the task if its version still matches, then advances the version.
func (r *taskRepository) Update(ctx context.Context, task *Task) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		UPDATE tasks
		SET title = $3, description = $4, due_date = $5, status = $6, priority = $7,
		    assignee_id = $8, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Version, task.Title, task.Description, task.DueDate, task.Status,
		task.Priority, task.AssigneeID,
	).Scan(&task.Version, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrVersionConflict
	}
	return err
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

func (r *taskRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID)
	return err
}

// CountByStatus groups a project's tasks by stored status.
func (r *taskRepository) CountByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM tasks WHERE project_id = $1 GROUP BY status`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] += n
	}
	return counts, rows.Err()
}

// OpenDueDates returns the due dates of a project's dated tasks whose status is not excludeStatus.
func (r *taskRepository) OpenDueDates(ctx context.Context, projectID, excludeStatus string) ([]time.Time, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT due_date FROM tasks
		WHERE project_id = $1 AND due_date IS NOT NULL AND status <> $2`, projectID, excludeStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dues []time.Time
	for rows.Next() {
		var due time.Time
		if err := rows.Scan(&due); err != nil {
			return nil, err
		}
		dues = append(dues, due)
	}
	return dues, rows.Err()
}

// FindDueForReminder returns assigned tasks due within [after, before] that are not in excludeStatus.
func (r *taskRepository) FindDueForReminder(ctx context.Context, after, before time.Time, excludeStatus string) ([]*Task, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE due_date IS NOT NULL AND due_date >= $1 AND due_date <= $2
		  AND assignee_id IS NOT NULL AND status <> $3
		ORDER BY due_date ASC`, after, before, excludeStatus)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}
