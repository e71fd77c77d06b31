package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
)

// ============================================
// Task Service
// ============================================

type CreateTaskInput struct {
	Title       string
	Description *string
	DueDate     *time.Time
	Status      string
	Priority    string
	AssigneeID  *string
}

// UpdateTaskInput holds the fields to change; nil leaves a field as is.
// AssigneeID pointing at "" unassigns the task.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *string
	Priority    *string
	AssigneeID  *string
	Version     *int
}

type TaskQuery struct {
	Status     string
	Priority   string
	AssigneeID string
}

type TaskService interface {
	Create(ctx context.Context, ident Identity, projectID string, in CreateTaskInput) (*repository.Task, error)
	Get(ctx context.Context, ident Identity, id string) (*repository.Task, error)
	List(ctx context.Context, ident Identity, projectID string, q TaskQuery) ([]*repository.Task, error)
	Update(ctx context.Context, ident Identity, id string, in UpdateTaskInput) (*repository.Task, error)
	Delete(ctx context.Context, ident Identity, id string) error
}

type taskService struct {
	taskRepo    repository.TaskRepository
	access      AccessService
	notifier    Notifier
	broadcaster Broadcaster
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	access AccessService,
	notifier Notifier,
	broadcaster Broadcaster,
) TaskService {
	return &taskService{
		taskRepo:    taskRepo,
		access:      access,
		notifier:    notifier,
		broadcaster: broadcaster,
	}
}

func validateTask(t *repository.Task) error {
	if t.Title == "" {
		return apperrors.Validation("title", "task title is required")
	}
	if utf8.RuneCountInString(t.Title) > types.MaxNameLength {
		return apperrors.Validation("title", "task title must be at most 100 characters")
	}
	if t.Description != nil && utf8.RuneCountInString(*t.Description) > types.MaxDescriptionLength {
		return apperrors.Validation("description", "description must be at most 1000 characters")
	}
	if t.DueDate == nil {
		return apperrors.Validation("dueDate", "due date is required")
	}
	if !types.IsValidTaskStatus(t.Status) {
		return apperrors.Validation("status", "status must be one of todo, in-progress, review, done")
	}
	if !types.IsValidPriority(t.Priority) {
		return apperrors.Validation("priority", "priority must be one of low, medium, high, urgent")
	}
	return nil
}

func normalizeAssignee(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func (s *taskService) Create(ctx context.Context, ident Identity, projectID string, in CreateTaskInput) (*repository.Task, error) {
	project, err := s.access.RequireProjectAccess(ctx, projectID, ident.UserID)
	if err != nil {
		return nil, err
	}

	task := &repository.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      types.NormalizeTaskStatus(in.Status),
		Priority:    strings.ToLower(strings.TrimSpace(in.Priority)),
		AssigneeID:  normalizeAssignee(in.AssigneeID),
		ProjectID:   project.ID,
		CreatedBy:   ident.UserID,
	}
	if task.Status == "" {
		task.Status = types.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = types.PriorityMedium
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}
	if task.AssigneeID != nil && !HasAccess(project, *task.AssigneeID) {
		return nil, apperrors.ErrAssigneeNotMember
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, storeErr("create task", err)
	}

	if task.AssigneeID != nil && *task.AssigneeID != ident.UserID {
		s.notifier.TaskAssignment(task, *task.AssigneeID)
	}
	s.broadcaster.ProjectEvent(project.ID, EventTaskCreated, map[string]interface{}{
		"projectId": project.ID,
		"taskId":    task.ID,
	}, ident.UserID)
	return task, nil
}

// load finds the task and its project. Callers outside the project see NotFound.
func (s *taskService) load(ctx context.Context, ident Identity, id string) (*repository.Task, *repository.Project, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr("find task", err)
	}
	if task == nil {
		return nil, nil, apperrors.ErrTaskNotFound
	}
	project, err := s.access.RequireProjectAccess(ctx, task.ProjectID, ident.UserID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, nil, apperrors.ErrTaskNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

func (s *taskService) Get(ctx context.Context, ident Identity, id string) (*repository.Task, error) {
	task, _, err := s.load(ctx, ident, id)
	return task, err
}

func (s *taskService) List(ctx context.Context, ident Identity, projectID string, q TaskQuery) ([]*repository.Task, error) {
	if _, err := s.access.RequireProjectAccess(ctx, projectID, ident.UserID); err != nil {
		return nil, err
	}

	filter := repository.TaskFilter{
		ProjectID:  projectID,
		Priority:   q.Priority,
		AssigneeID: strings.TrimSpace(q.AssigneeID),
	}
	if q.Status != "" {
		status := types.NormalizeTaskStatus(q.Status)
		if !types.IsValidTaskStatus(status) {
			return nil, apperrors.Validation("status", "status must be one of todo, in-progress, review, done")
		}
		filter.Statuses = []string{status}
	}
	if q.Priority != "" && !types.IsValidPriority(q.Priority) {
		return nil, apperrors.Validation("priority", "priority must be one of low, medium, high, urgent")
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, ident Identity, id string, in UpdateTaskInput) (*repository.Task, error) {
	task, project, err := s.load(ctx, ident, id)
	if err != nil {
		return nil, err
	}

	perm := CanMutateTask(project, task, ident.UserID)
	if !perm.Allowed {
		return nil, apperrors.ErrNotTaskEditor
	}
	if in.Version != nil && *in.Version != task.Version {
		return nil, apperrors.ErrStaleWrite
	}

	previousAssignee := task.AssigneeID
	assigneeChanged := false
	if in.AssigneeID != nil {
		next := normalizeAssignee(in.AssigneeID)
		if !sameID(next, task.AssigneeID) {
			if !perm.AsAdmin {
				return nil, apperrors.ErrAssigneeChange
			}
			if next != nil && !HasAccess(project, *next) {
				return nil, apperrors.ErrAssigneeNotMember
			}
			task.AssigneeID = next
			assigneeChanged = true
		}
	}

	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = in.Description
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Status != nil {
		task.Status = types.NormalizeTaskStatus(*in.Status)
	}
	if in.Priority != nil {
		task.Priority = strings.ToLower(strings.TrimSpace(*in.Priority))
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, writeErr("update task", err)
	}

	if assigneeChanged && task.AssigneeID != nil && *task.AssigneeID != ident.UserID {
		s.notifier.TaskAssignment(task, *task.AssigneeID)
	}
	payload := map[string]interface{}{
		"projectId": task.ProjectID,
		"taskId":    task.ID,
		"status":    task.Status,
	}
	if assigneeChanged {
		payload["previousAssigneeId"] = previousAssignee
		payload["assigneeId"] = task.AssigneeID
	}
	s.broadcaster.ProjectEvent(task.ProjectID, EventTaskUpdated, payload, ident.UserID)
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, ident Identity, id string) error {
	task, project, err := s.load(ctx, ident, id)
	if err != nil {
		return err
	}
	if !IsAdmin(project, ident.UserID) {
		return apperrors.ErrNotProjectAdmin
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return storeErr("delete task", err)
	}

	s.broadcaster.ProjectEvent(task.ProjectID, EventTaskDeleted, map[string]interface{}{
		"projectId": task.ProjectID,
		"taskId":    task.ID,
	}, ident.UserID)
	return nil
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
