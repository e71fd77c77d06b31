package service

import (
	"errors"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/config"
	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
)

// Identity is the authenticated caller. Middleware builds it once per request
// and handlers pass it explicitly into every operation.
type Identity struct {
	UserID string
	Role   string
}

// Notifier receives side-effect events after a core mutation has been stored.
// Implementations must not block the caller and must not report failures back.
type Notifier interface {
	TaskAssignment(task *repository.Task, assigneeID string)
	DueDate(task *repository.Task, userID string, isOverdue bool)
	Mention(mentionedUserID string, comment *repository.Comment, task *repository.Task)
}

// Real-time event names pushed to project rooms.
const (
	EventProjectUpdated    = "project:updated"
	EventProjectDeleted    = "project:deleted"
	EventMemberAdded       = "member:added"
	EventMemberRemoved     = "member:removed"
	EventMemberRoleUpdated = "member:role_updated"
	EventTaskCreated       = "task:created"
	EventTaskUpdated       = "task:updated"
	EventTaskDeleted       = "task:deleted"
	EventCommentCreated    = "comment:created"
	EventCommentUpdated    = "comment:updated"
	EventCommentDeleted    = "comment:deleted"
)

// Broadcaster pushes best-effort real-time events to a project's room.
type Broadcaster interface {
	ProjectEvent(projectID, event string, payload interface{}, excludeUserID string)
}

type noopNotifier struct{}

func (noopNotifier) TaskAssignment(*repository.Task, string)               {}
func (noopNotifier) DueDate(*repository.Task, string, bool)                {}
func (noopNotifier) Mention(string, *repository.Comment, *repository.Task) {}

type noopBroadcaster struct{}

func (noopBroadcaster) ProjectEvent(string, string, interface{}, string) {}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth         AuthService
	Access       AccessService
	Project      ProjectService
	Task         TaskService
	Comment      CommentService
	Analytics    AnalyticsService
	Notification NotificationService
	Hydrator     *Hydrator
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Notifier    Notifier
	Broadcaster Broadcaster
	Tokens      TokenStore
	Now         func() time.Time
}

func NewServices(deps *ServiceDeps) *Services {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	broadcaster := deps.Broadcaster
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	access := NewAccessService(deps.Repos.ProjectRepo)

	return &Services{
		Auth:   NewAuthService(deps.Config, deps.Repos.UserRepo, tokens),
		Access: access,
		Project: NewProjectService(
			deps.Repos.ProjectRepo,
			deps.Repos.TaskRepo,
			deps.Repos.CommentRepo,
			deps.Repos.UserRepo,
			access,
			broadcaster,
		),
		Task: NewTaskService(
			deps.Repos.TaskRepo,
			access,
			notifier,
			broadcaster,
		),
		Comment: NewCommentService(
			deps.Repos.CommentRepo,
			deps.Repos.UserRepo,
			access,
			notifier,
			broadcaster,
		),
		Analytics:    NewAnalyticsService(deps.Repos.TaskRepo, access, now),
		Notification: NewNotificationService(deps.Repos.NotificationRepo),
		Hydrator:     NewHydrator(deps.Repos.UserRepo),
	}
}

// storeErr wraps a persistence failure so it surfaces as a dependency error.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Dependency(op, err)
}

// writeErr translates repository write failures into the error taxonomy.
func writeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.ErrStaleWrite
	default:
		return storeErr(op, err)
	}
}
