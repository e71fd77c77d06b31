package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
	"github.com/robfig/cron/v3"
)

// reminderWindow is how far ahead a task counts as due soon.
const reminderWindow = 24 * time.Hour

// overdueReminderLimit stops daily reminders for tasks overdue longer than this.
const overdueReminderLimit = 7 * 24 * time.Hour

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	taskRepo repository.TaskRepository
	notifier service.Notifier
	timeout  time.Duration
	now      func() time.Time
}

// NewScheduler creates a scheduler that runs the due-date scan on spec.
func NewScheduler(spec string, taskRepo repository.TaskRepository, notifier service.Notifier, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		spec:     spec,
		taskRepo: taskRepo,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		log.Println("[Cron] Running due date reminder check...")
		n, err := s.CheckDueDates(context.Background())
		if err != nil {
			log.Printf("[Cron] Due date check failed: %v", err)
			return
		}
		log.Printf("[Cron] Due date check sent %d reminders", n)
	}); err != nil {
		return fmt.Errorf("invalid due date schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	log.Printf("[Cron] Scheduler started (due dates: %s)", s.spec)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[Cron] Scheduler stopped")
}

// CheckDueDates emits a DueDate event for every open, assigned task that is
// due within the next 24 hours or overdue by at most a week.
func (s *Scheduler) CheckDueDates(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	tasks, err := s.taskRepo.FindDueForReminder(ctx, now.Add(-overdueReminderLimit), now.Add(reminderWindow), types.StatusDone)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, task := range tasks {
		if task.AssigneeID == nil || task.DueDate == nil {
			continue
		}
		s.notifier.DueDate(task, *task.AssigneeID, task.DueDate.Before(now))
		sent++
	}
	return sent, nil
}
