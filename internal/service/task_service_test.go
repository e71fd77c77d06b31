package service

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	*fixture
	owner, admin, member, stranger *repository.User
	project                        *repository.Project
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	f := newFixture()
	ctx := context.Background()
	tf := &taskFixture{
		fixture:  f,
		owner:    f.users.add("Owner", "owner@example.com"),
		admin:    f.users.add("Admin", "admin@example.com"),
		member:   f.users.add("Member", "member@example.com"),
		stranger: f.users.add("Stranger", "stranger@example.com"),
	}
	project, err := f.svc.Project.Create(ctx, as(tf.owner), CreateProjectInput{
		Name:      "Launch",
		MemberIDs: []string{tf.admin.ID, tf.member.ID},
	})
	require.NoError(t, err)
	project, err = f.svc.Project.UpdateMemberRole(ctx, as(tf.owner), project.ID, tf.admin.ID, "admin")
	require.NoError(t, err)
	tf.project = project
	return tf
}

func TestCreateTask_DefaultsAndNotification(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	task, err := tf.svc.Task.Create(ctx, as(tf.member), tf.project.ID, CreateTaskInput{
		Title:      "Write docs",
		DueDate:    timePtr(tf.now.Add(48 * time.Hour)),
		AssigneeID: strPtr(tf.admin.ID),
	})
	require.NoError(t, err)

	assert.Equal(t, "todo", task.Status)
	assert.Equal(t, "medium", task.Priority)
	assert.Equal(t, tf.member.ID, task.CreatedBy)
	assert.Equal(t, 1, task.Version)
	tf.notifier.AssertCalled(t, "TaskAssignment", mock.Anything, tf.admin.ID)
	assert.Contains(t, tf.broadcaster.events, EventTaskCreated)
}

func TestCreateTask_AssigneeMustBeMember(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	_, err := tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{
		Title:      "T",
		DueDate:    timePtr(tf.now),
		AssigneeID: strPtr(tf.stranger.ID),
	})
	assert.ErrorIs(t, err, apperrors.ErrAssigneeNotMember)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	// The owner is a valid assignee even though never listed as a member.
	task, err := tf.svc.Task.Create(ctx, as(tf.member), tf.project.ID, CreateTaskInput{
		Title:      "T",
		DueDate:    timePtr(tf.now),
		AssigneeID: strPtr(tf.owner.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, tf.owner.ID, *task.AssigneeID)
}

func TestCreateTask_Validation(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	cases := map[string]CreateTaskInput{
		"missing title":    {DueDate: timePtr(tf.now)},
		"missing due date": {Title: "T"},
		"bad status":       {Title: "T", DueDate: timePtr(tf.now), Status: "blocked"},
		"bad priority":     {Title: "T", DueDate: timePtr(tf.now), Priority: "critical"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, in)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
		})
	}

	task, err := tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{
		Title: "Legacy", DueDate: timePtr(tf.now), Status: "inprogress",
	})
	require.NoError(t, err)
	assert.Equal(t, "in-progress", task.Status)

	description := strings.Repeat("日", 1000)
	task, err = tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{
		Title: strings.Repeat("日", 50), Description: &description, DueDate: timePtr(tf.now),
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("日", 50), task.Title)

	_, err = tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{
		Title: strings.Repeat("日", 101), DueDate: timePtr(tf.now),
	})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestCreateTask_NonMember(t *testing.T) {
	tf := newTaskFixture(t)

	_, err := tf.svc.Task.Create(context.Background(), as(tf.stranger), tf.project.ID, CreateTaskInput{
		Title: "T", DueDate: timePtr(tf.now),
	})
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestUpdateTask_AssigneeMayChangeStatusButNotReassign(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	task, err := tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{
		Title: "T", DueDate: timePtr(tf.now), AssigneeID: strPtr(tf.member.ID),
	})
	require.NoError(t, err)

	updated, err := tf.svc.Task.Update(ctx, as(tf.member), task.ID, UpdateTaskInput{Status: strPtr("review")})
	require.NoError(t, err)
	assert.Equal(t, "review", updated.Status)

	_, err = tf.svc.Task.Update(ctx, as(tf.member), task.ID, UpdateTaskInput{AssigneeID: strPtr(tf.admin.ID)})
	assert.ErrorIs(t, err, apperrors.ErrAssigneeChange)

	// Re-sending the current assignee is not a change.
	_, err = tf.svc.Task.Update(ctx, as(tf.member), task.ID, UpdateTaskInput{AssigneeID: strPtr(tf.member.ID)})
	require.NoError(t, err)

	reassigned, err := tf.svc.Task.Update(ctx, as(tf.admin), task.ID, UpdateTaskInput{AssigneeID: strPtr(tf.admin.ID)})
	require.NoError(t, err)
	assert.Equal(t, tf.admin.ID, *reassigned.AssigneeID)

	// The former assignee has lost edit rights.
	_, err = tf.svc.Task.Update(ctx, as(tf.member), task.ID, UpdateTaskInput{Status: strPtr("done")})
	assert.ErrorIs(t, err, apperrors.ErrNotTaskEditor)

	_, err = tf.svc.Task.Update(ctx, as(tf.admin), task.ID, UpdateTaskInput{AssigneeID: strPtr(tf.stranger.ID)})
	assert.ErrorIs(t, err, apperrors.ErrAssigneeNotMember)

	unassigned, err := tf.svc.Task.Update(ctx, as(tf.owner), task.ID, UpdateTaskInput{AssigneeID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssigneeID)
}

func TestUpdateTask_StaleVersion(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	task, err := tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{Title: "T", DueDate: timePtr(tf.now)})
	require.NoError(t, err)

	v := task.Version
	_, err = tf.svc.Task.Update(ctx, as(tf.owner), task.ID, UpdateTaskInput{Title: strPtr("A"), Version: &v})
	require.NoError(t, err)

	_, err = tf.svc.Task.Update(ctx, as(tf.admin), task.ID, UpdateTaskInput{Title: strPtr("B"), Version: &v})
	assert.ErrorIs(t, err, apperrors.ErrStaleWrite)
}

func TestGetTask_OutsideProjectIsNotFound(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	task, err := tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{Title: "T", DueDate: timePtr(tf.now)})
	require.NoError(t, err)

	_, err = tf.svc.Task.Get(ctx, as(tf.stranger), task.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	_, err = tf.svc.Task.Update(ctx, as(tf.stranger), task.ID, UpdateTaskInput{Status: strPtr("done")})
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	_, err = tf.svc.Task.Get(ctx, as(tf.owner), "missing")
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	got, err := tf.svc.Task.Get(ctx, as(tf.member), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestDeleteTask_RequiresAdmin(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	task, err := tf.svc.Task.Create(ctx, as(tf.member), tf.project.ID, CreateTaskInput{
		Title: "T", DueDate: timePtr(tf.now), AssigneeID: strPtr(tf.member.ID),
	})
	require.NoError(t, err)

	err = tf.svc.Task.Delete(ctx, as(tf.member), task.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotProjectAdmin)

	require.NoError(t, tf.svc.Task.Delete(ctx, as(tf.admin), task.ID))
	_, err = tf.svc.Task.Get(ctx, as(tf.owner), task.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}

func TestListTasks_Filters(t *testing.T) {
	tf := newTaskFixture(t)
	ctx := context.Background()

	_, err := tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{
		Title: "A", DueDate: timePtr(tf.now), AssigneeID: strPtr(tf.member.ID),
	})
	require.NoError(t, err)
	_, err = tf.svc.Task.Create(ctx, as(tf.owner), tf.project.ID, CreateTaskInput{
		Title: "B", DueDate: timePtr(tf.now), Status: "done",
	})
	require.NoError(t, err)

	all, err := tf.svc.Task.List(ctx, as(tf.member), tf.project.ID, TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := tf.svc.Task.List(ctx, as(tf.member), tf.project.ID, TaskQuery{Status: "done"})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "B", done[0].Title)

	mine, err := tf.svc.Task.List(ctx, as(tf.member), tf.project.ID, TaskQuery{AssigneeID: tf.member.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "A", mine[0].Title)

	_, err = tf.svc.Task.List(ctx, as(tf.member), tf.project.ID, TaskQuery{Status: "nope"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = tf.svc.Task.List(ctx, as(tf.stranger), tf.project.ID, TaskQuery{})
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}
