package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_EscapesUserContent(t *testing.T) {
	s := NewService(&Config{})

	body, err := s.Render("mention", MentionData{
		UserName:       "Ann",
		MentionedBy:    "Bob",
		ProjectName:    "Launch",
		CommentContent: "<script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "You were mentioned")
	assert.Contains(t, body, "Launch")
	assert.NotContains(t, body, "<script>")
}

func TestRender_DueDateTitle(t *testing.T) {
	s := NewService(&Config{})

	body, err := s.Render("due_date_reminder", DueDateReminderData{TaskTitle: "Ship", Overdue: true})
	require.NoError(t, err)
	assert.Contains(t, body, "Task Overdue")

	_, err = s.Render("missing", nil)
	assert.Error(t, err)
}

func TestSend_DisabledIsNoop(t *testing.T) {
	s := NewService(&Config{})
	assert.False(t, s.Enabled())
	assert.NoError(t, s.SendTaskAssigned("ann@example.com", TaskAssignedData{TaskTitle: "Ship"}))
}
