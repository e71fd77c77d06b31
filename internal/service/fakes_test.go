package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/config"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ============================================
// In-memory repositories
// ============================================

type memUsers struct {
	mu    sync.Mutex
	users map[string]*repository.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*repository.User)}
}

func (r *memUsers) Create(_ context.Context, u *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == strings.ToLower(u.Email) {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUsers) FindByIDs(_ context.Context, ids []string) ([]*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUsers) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *memUsers) add(name, email string) *repository.User {
	u := &repository.User{Name: name, Email: email, Role: "member"}
	_ = r.Create(context.Background(), u)
	return u
}

type memProjects struct {
	mu       sync.Mutex
	projects map[string]*repository.Project
	order    []string
}

func newMemProjects() *memProjects {
	return &memProjects{projects: make(map[string]*repository.Project)}
}

func copyProject(p *repository.Project) *repository.Project {
	cp := *p
	cp.Members = append([]repository.ProjectMember(nil), p.Members...)
	return &cp
}

func (r *memProjects) Create(_ context.Context, p *repository.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.NewString()
	p.Version = 1
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	for i := range p.Members {
		p.Members[i].JoinedAt = p.CreatedAt
	}
	r.projects[p.ID] = copyProject(p)
	r.order = append(r.order, p.ID)
	return nil
}

func (r *memProjects) FindByID(_ context.Context, id string) (*repository.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		return copyProject(p), nil
	}
	return nil, nil
}

func (r *memProjects) List(_ context.Context, f repository.ProjectFilter) ([]*repository.Project, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*repository.Project
	for i := len(r.order) - 1; i >= 0; i-- {
		p, ok := r.projects[r.order[i]]
		if !ok || !HasAccess(p, f.UserID) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			desc := ""
			if p.Description != nil {
				desc = *p.Description
			}
			if !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(desc), needle) {
				continue
			}
		}
		matched = append(matched, copyProject(p))
	}
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (r *memProjects) Update(_ context.Context, p *repository.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.projects[p.ID]
	if !ok || stored.Version != p.Version {
		return repository.ErrVersionConflict
	}
	p.Version++
	p.UpdatedAt = time.Now()
	members := stored.Members
	r.projects[p.ID] = copyProject(p)
	r.projects[p.ID].Members = members
	return nil
}

func (r *memProjects) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	return nil
}

func (r *memProjects) withVersion(projectID string, version int, fn func(p *repository.Project) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok || p.Version != version {
		return repository.ErrVersionConflict
	}
	if err := fn(p); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *memProjects) AddMember(_ context.Context, projectID string, version int, m repository.ProjectMember) error {
	return r.withVersion(projectID, version, func(p *repository.Project) error {
		for _, existing := range p.Members {
			if existing.UserID == m.UserID {
				return repository.ErrDuplicate
			}
		}
		m.JoinedAt = time.Now()
		p.Members = append(p.Members, m)
		return nil
	})
}

func (r *memProjects) RemoveMember(_ context.Context, projectID string, version int, userID string) error {
	return r.withVersion(projectID, version, func(p *repository.Project) error {
		kept := p.Members[:0]
		for _, m := range p.Members {
			if m.UserID != userID {
				kept = append(kept, m)
			}
		}
		p.Members = kept
		return nil
	})
}

func (r *memProjects) UpdateMemberRole(_ context.Context, projectID string, version int, userID, role string) error {
	return r.withVersion(projectID, version, func(p *repository.Project) error {
		for i := range p.Members {
			if p.Members[i].UserID == userID {
				p.Members[i].Role = role
			}
		}
		return nil
	})
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]*repository.Task
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: make(map[string]*repository.Task)}
}

func (r *memTasks) Create(_ context.Context, t *repository.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	t.Version = 1
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *memTasks) FindByID(_ context.Context, id string) (*repository.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (r *memTasks) List(_ context.Context, f repository.TaskFilter) ([]*repository.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Task
	for _, t := range r.tasks {
		if t.ProjectID != f.ProjectID {
			continue
		}
		if len(f.Statuses) > 0 && t.Status != f.Statuses[0] {
			continue
		}
		if f.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != f.AssigneeID) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTasks) Update(_ context.Context, t *repository.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[t.ID]
	if !ok || stored.Version != t.Version {
		return repository.ErrVersionConflict
	}
	t.Version++
	t.UpdatedAt = time.Now()
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *memTasks) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

func (r *memTasks) DeleteByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tasks {
		if t.ProjectID == projectID {
			delete(r.tasks, id)
		}
	}
	return nil
}

func (r *memTasks) CountByStatus(_ context.Context, projectID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			counts[t.Status]++
		}
	}
	return counts, nil
}

func (r *memTasks) OpenDueDates(_ context.Context, projectID, excludeStatus string) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dues []time.Time
	for _, t := range r.tasks {
		if t.ProjectID == projectID && t.DueDate != nil && t.Status != excludeStatus {
			dues = append(dues, *t.DueDate)
		}
	}
	return dues, nil
}

func (r *memTasks) FindDueForReminder(_ context.Context, after, before time.Time, excludeStatus string) ([]*repository.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Task
	for _, t := range r.tasks {
		if t.DueDate != nil && !t.DueDate.Before(after) && !t.DueDate.After(before) && t.AssigneeID != nil && t.Status != excludeStatus {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTasks) count(projectID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n
}

type memComments struct {
	mu       sync.Mutex
	comments map[string]*repository.Comment
	seq      int
}

func newMemComments() *memComments {
	return &memComments{comments: make(map[string]*repository.Comment)}
}

func (r *memComments) Create(_ context.Context, c *repository.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = uuid.NewString()
	c.CreatedAt = time.Unix(int64(r.seq), 0)
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

func (r *memComments) FindByID(_ context.Context, id string) (*repository.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memComments) FindByProject(_ context.Context, projectID string) ([]*repository.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Comment
	for _, c := range r.comments {
		if c.ProjectID == projectID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memComments) Update(_ context.Context, c *repository.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.IsEdited = true
	c.UpdatedAt = time.Now()
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

func (r *memComments) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.comments, id)
	return nil
}

func (r *memComments) DeleteReplies(_ context.Context, parentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			delete(r.comments, id)
			n++
		}
	}
	return n, nil
}

func (r *memComments) DeleteByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.comments {
		if c.ProjectID == projectID {
			delete(r.comments, id)
		}
	}
	return nil
}

func (r *memComments) count(projectID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.comments {
		if c.ProjectID == projectID {
			n++
		}
	}
	return n
}

type memNotifications struct {
	mu    sync.Mutex
	items map[string]*repository.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{items: make(map[string]*repository.Notification)}
}

func (r *memNotifications) Create(_ context.Context, n *repository.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memNotifications) FindByUserID(_ context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Notification
	for _, n := range r.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memNotifications) CountByUserID(_ context.Context, userID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, unread := 0, 0
	for _, n := range r.items {
		if n.UserID == userID {
			total++
			if !n.IsRead {
				unread++
			}
		}
	}
	return total, unread, nil
}

func (r *memNotifications) MarkAsRead(_ context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

func (r *memNotifications) MarkAllAsRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *memNotifications) Delete(_ context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

// ============================================
// Side-effect mocks
// ============================================

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) TaskAssignment(task *repository.Task, assigneeID string) {
	m.Called(task, assigneeID)
}

func (m *MockNotifier) DueDate(task *repository.Task, userID string, isOverdue bool) {
	m.Called(task, userID, isOverdue)
}

func (m *MockNotifier) Mention(mentionedUserID string, comment *repository.Comment, task *repository.Task) {
	m.Called(mentionedUserID, comment, task)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) ProjectEvent(_, event string, _ interface{}, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// ============================================
// Fixture
// ============================================

type fixture struct {
	users         *memUsers
	projects      *memProjects
	tasks         *memTasks
	comments      *memComments
	notifications *memNotifications
	notifier      *MockNotifier
	broadcaster   *recordingBroadcaster
	now           time.Time
	svc           *Services
}

func newFixture() *fixture {
	f := &fixture{
		users:         newMemUsers(),
		projects:      newMemProjects(),
		tasks:         newMemTasks(),
		comments:      newMemComments(),
		notifications: newMemNotifications(),
		notifier:      &MockNotifier{},
		broadcaster:   &recordingBroadcaster{},
		now:           time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewServices(&ServiceDeps{
		Config: &config.Config{JWTSecret: "test-secret", JWTExpiry: 1},
		Repos: &repository.Repositories{
			UserRepo:         f.users,
			ProjectRepo:      f.projects,
			NotificationRepo: f.notifications,
			TaskRepo:         f.tasks,
			CommentRepo:      f.comments,
		},
		Notifier:    f.notifier,
		Broadcaster: f.broadcaster,
		Now:         func() time.Time { return f.now },
	})
	f.notifier.On("TaskAssignment", mock.Anything, mock.Anything).Maybe()
	f.notifier.On("DueDate", mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.notifier.On("Mention", mock.Anything, mock.Anything, mock.Anything).Maybe()
	return f
}

func as(u *repository.User) Identity {
	return Identity{UserID: u.ID, Role: u.Role}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
