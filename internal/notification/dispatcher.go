// Package notification turns task and comment events into stored notifications,
// real-time pushes and emails without blocking the request that raised them.
package notification

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Marga-Ghale/ora-collab-backend/internal/email"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
)

// Mailer is the part of the email service the dispatcher uses.
type Mailer interface {
	Enabled() bool
	SendTaskAssigned(to string, data email.TaskAssignedData) error
	SendDueDateReminder(to string, data email.DueDateReminderData) error
	SendMention(to string, data email.MentionData) error
}

// Pusher delivers a stored notification to the recipient's live connections.
type Pusher interface {
	SendNotification(userID string, notification interface{})
}

type Config struct {
	Workers     int
	QueueSize   int
	Timeout     time.Duration
	FrontendURL string
}

type event struct {
	kind    string
	userID  string
	task    *repository.Task
	comment *repository.Comment
	overdue bool
}

// Dispatcher implements service.Notifier.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	projects      repository.ProjectRepository
	mailer        Mailer
	pusher        Pusher
	cfg           Config

	queue  chan event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ service.Notifier = (*Dispatcher)(nil)

// NewDispatcher builds a dispatcher. mailer and pusher may be nil.
func NewDispatcher(repos *repository.Repositories, mailer Mailer, pusher Pusher, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifications: repos.NotificationRepo,
		users:         repos.UserRepo,
		projects:      repos.ProjectRepo,
		mailer:        mailer,
		pusher:        pusher,
		cfg:           cfg,
		queue:         make(chan event, cfg.QueueSize),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	log.Printf("[Notify] dispatcher started with %d workers", d.cfg.Workers)
}

// Stop refuses new events, drains the queue and waits for the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	log.Println("[Notify] dispatcher stopped")
}

func (d *Dispatcher) TaskAssignment(task *repository.Task, assigneeID string) {
	d.enqueue(event{kind: types.NotificationTaskAssignment, userID: assigneeID, task: task})
}

func (d *Dispatcher) DueDate(task *repository.Task, userID string, isOverdue bool) {
	d.enqueue(event{kind: types.NotificationDueDate, userID: userID, task: task, overdue: isOverdue})
}

func (d *Dispatcher) Mention(mentionedUserID string, comment *repository.Comment, task *repository.Task) {
	d.enqueue(event{kind: types.NotificationMention, userID: mentionedUserID, comment: comment, task: task})
}

func (d *Dispatcher) enqueue(ev event) {
	if ev.userID == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("[Notify] dispatcher stopped, dropping %s for user %s", ev.kind, ev.userID)
		return
	}
	select {
	case d.queue <- ev:
	default:
		log.Printf("[Notify] queue full, dropping %s for user %s", ev.kind, ev.userID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.process(ev)
	}
}

func (d *Dispatcher) process(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	n, err := d.build(ctx, ev)
	if err != nil {
		log.Printf("[Notify] failed to build %s for user %s: %v", ev.kind, ev.userID, err)
		return
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		log.Printf("[Notify] failed to store %s for user %s: %v", ev.kind, ev.userID, err)
		return
	}

	if d.pusher != nil {
		d.pusher.SendNotification(n.UserID, service.ToNotificationResponse(n))
	}
	if d.mailer != nil && d.mailer.Enabled() {
		if err := d.mail(ctx, ev); err != nil {
			log.Printf("[Notify] email for %s to user %s failed: %v", ev.kind, ev.userID, err)
		}
	}
}

func (d *Dispatcher) build(ctx context.Context, ev event) (*repository.Notification, error) {
	n := &repository.Notification{UserID: ev.userID, Type: ev.kind}

	switch ev.kind {
	case types.NotificationTaskAssignment:
		n.Message = fmt.Sprintf("You have been assigned to the task: %s", ev.task.Title)
		n.ProjectID, n.TaskID = &ev.task.ProjectID, &ev.task.ID

	case types.NotificationDueDate:
		status := "due soon"
		if ev.overdue {
			status = "overdue"
		}
		n.Message = fmt.Sprintf("Task %q is %s", ev.task.Title, status)
		n.ProjectID, n.TaskID = &ev.task.ProjectID, &ev.task.ID

	case types.NotificationMention:
		n.ProjectID, n.CommentID = &ev.comment.ProjectID, &ev.comment.ID
		if ev.task != nil {
			n.TaskID = &ev.task.ID
			n.Message = fmt.Sprintf("You were mentioned in a comment on task: %s", ev.task.Title)
			break
		}
		name, err := d.projectName(ctx, ev.comment.ProjectID)
		if err != nil {
			return nil, err
		}
		n.Message = fmt.Sprintf("You were mentioned in a comment on project: %s", name)

	default:
		return nil, fmt.Errorf("unknown notification type %q", ev.kind)
	}

	n.Message = truncate(n.Message, types.MaxMessageLength)
	return n, nil
}

func (d *Dispatcher) mail(ctx context.Context, ev event) error {
	recipient, err := d.users.FindByID(ctx, ev.userID)
	if err != nil {
		return err
	}
	if recipient == nil {
		return nil
	}

	switch ev.kind {
	case types.NotificationTaskAssignment:
		name, err := d.projectName(ctx, ev.task.ProjectID)
		if err != nil {
			return err
		}
		return d.mailer.SendTaskAssigned(recipient.Email, email.TaskAssignedData{
			AssigneeName: recipient.Name,
			ProjectName:  name,
			TaskTitle:    ev.task.Title,
			Priority:     ev.task.Priority,
			DueDate:      formatDue(ev.task.DueDate),
			TaskURL:      d.taskURL(ev.task),
		})

	case types.NotificationDueDate:
		return d.mailer.SendDueDateReminder(recipient.Email, email.DueDateReminderData{
			UserName:  recipient.Name,
			TaskTitle: ev.task.Title,
			DueDate:   formatDue(ev.task.DueDate),
			Overdue:   ev.overdue,
			TaskURL:   d.taskURL(ev.task),
		})

	case types.NotificationMention:
		author, err := d.users.FindByID(ctx, ev.comment.AuthorID)
		if err != nil {
			return err
		}
		by := "Someone"
		if author != nil {
			by = author.Name
		}
		name, err := d.projectName(ctx, ev.comment.ProjectID)
		if err != nil {
			return err
		}
		return d.mailer.SendMention(recipient.Email, email.MentionData{
			UserName:       recipient.Name,
			MentionedBy:    by,
			ProjectName:    name,
			CommentContent: ev.comment.Body,
			ProjectURL:     fmt.Sprintf("%s/projects/%s", d.cfg.FrontendURL, ev.comment.ProjectID),
		})
	}
	return nil
}

func (d *Dispatcher) projectName(ctx context.Context, projectID string) (string, error) {
	project, err := d.projects.FindByID(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "a deleted project", nil
	}
	return project.Name, nil
}

func (d *Dispatcher) taskURL(t *repository.Task) string {
	return fmt.Sprintf("%s/projects/%s/tasks/%s", d.cfg.FrontendURL, t.ProjectID, t.ID)
}

func formatDue(due *time.Time) string {
	if due == nil {
		return ""
	}
	return due.Format("Jan 2, 2006")
}

// truncate cuts s to at most limit characters.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
