package notification

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/email"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type storedNotifications struct {
	repository.NotificationRepository
	mu    sync.Mutex
	items []*repository.Notification
}

func (s *storedNotifications) Create(_ context.Context, n *repository.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = "n" + string(rune('0'+len(s.items)))
	s.items = append(s.items, n)
	return nil
}

type userLookup struct {
	repository.UserRepository
	users map[string]*repository.User
}

func (u *userLookup) FindByID(_ context.Context, id string) (*repository.User, error) {
	return u.users[id], nil
}

type projectLookup struct {
	repository.ProjectRepository
	projects map[string]*repository.Project
}

func (p *projectLookup) FindByID(_ context.Context, id string) (*repository.Project, error) {
	return p.projects[id], nil
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockMailer) SendTaskAssigned(to string, data email.TaskAssignedData) error {
	return m.Called(to, data).Error(0)
}

func (m *MockMailer) SendDueDateReminder(to string, data email.DueDateReminderData) error {
	return m.Called(to, data).Error(0)
}

func (m *MockMailer) SendMention(to string, data email.MentionData) error {
	return m.Called(to, data).Error(0)
}

type recordingPusher struct {
	mu     sync.Mutex
	pushed []string
}

func (p *recordingPusher) SendNotification(userID string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, userID)
}

type dispatcherFixture struct {
	store  *storedNotifications
	mailer *MockMailer
	pusher *recordingPusher
	d      *Dispatcher
}

func newDispatcherFixture(queueSize int) *dispatcherFixture {
	f := &dispatcherFixture{
		store:  &storedNotifications{},
		mailer: &MockMailer{},
		pusher: &recordingPusher{},
	}
	repos := &repository.Repositories{
		NotificationRepo: f.store,
		UserRepo: &userLookup{users: map[string]*repository.User{
			"ann": {ID: "ann", Name: "Ann", Email: "ann@example.com"},
			"bob": {ID: "bob", Name: "Bob", Email: "bob@example.com"},
		}},
		ProjectRepo: &projectLookup{projects: map[string]*repository.Project{
			"p1": {ID: "p1", Name: "Launch"},
		}},
	}
	f.d = NewDispatcher(repos, f.mailer, f.pusher, Config{
		Workers:     2,
		QueueSize:   queueSize,
		Timeout:     time.Second,
		FrontendURL: "http://app.test",
	})
	return f
}

func testTask() *repository.Task {
	due := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	return &repository.Task{ID: "t1", Title: "Ship it", ProjectID: "p1", Priority: "high", DueDate: &due}
}

func TestDispatcher_TaskAssignment(t *testing.T) {
	f := newDispatcherFixture(8)
	f.mailer.On("Enabled").Return(true)
	f.mailer.On("SendTaskAssigned", "ann@example.com", mock.MatchedBy(func(d email.TaskAssignedData) bool {
		return d.ProjectName == "Launch" && d.TaskURL == "http://app.test/projects/p1/tasks/t1"
	})).Return(nil).Once()

	f.d.Start()
	f.d.TaskAssignment(testTask(), "ann")
	f.d.Stop()

	require.Len(t, f.store.items, 1)
	n := f.store.items[0]
	assert.Equal(t, "ann", n.UserID)
	assert.Equal(t, "task_assignment", n.Type)
	assert.Equal(t, "You have been assigned to the task: Ship it", n.Message)
	assert.Equal(t, "t1", *n.TaskID)
	assert.Equal(t, []string{"ann"}, f.pusher.pushed)
	f.mailer.AssertExpectations(t)
}

func TestDispatcher_DueDateAndMention(t *testing.T) {
	f := newDispatcherFixture(8)
	f.mailer.On("Enabled").Return(false)

	f.d.Start()
	f.d.DueDate(testTask(), "ann", true)
	f.d.Mention("bob", &repository.Comment{ID: "c1", ProjectID: "p1", AuthorID: "ann", Body: "hi"}, nil)
	f.d.Stop()

	require.Len(t, f.store.items, 2)
	messages := []string{f.store.items[0].Message, f.store.items[1].Message}
	assert.ElementsMatch(t, []string{
		`Task "Ship it" is overdue`,
		"You were mentioned in a comment on project: Launch",
	}, messages)
	f.mailer.AssertNotCalled(t, "SendMention", mock.Anything, mock.Anything)
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	f := newDispatcherFixture(1)
	f.mailer.On("Enabled").Return(false)

	done := make(chan struct{})
	go func() {
		f.d.TaskAssignment(testTask(), "ann")
		f.d.TaskAssignment(testTask(), "bob")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked")
	}

	f.d.Start()
	f.d.Stop()
	assert.Len(t, f.store.items, 1)

	// Events after Stop are dropped.
	f.d.TaskAssignment(testTask(), "ann")
	assert.Len(t, f.store.items, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 500))
	assert.Len(t, truncate(strings.Repeat("a", 600), 500), 500)

	// Counts characters, not bytes.
	s := strings.Repeat("a", 499) + "é"
	assert.Equal(t, s, truncate(s, 500))
	assert.Equal(t, strings.Repeat("ж", 500), truncate(strings.Repeat("ж", 600), 500))
	assert.Equal(t, strings.Repeat("a", 499)+"é", truncate(s+"tail", 500))
}
