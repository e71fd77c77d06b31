package types

import "strings"

// Task Status values
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// Task Priority values
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Project Status values
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectOnHold    = "on-hold"
)

// Project Member Roles. Owner is never stored in the member list.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Global user roles
const (
	UserRoleAdmin  = "admin"
	UserRoleMember = "member"
)

// Notification types
const (
	NotificationTaskAssignment = "task_assignment"
	NotificationDueDate        = "due_date"
	NotificationMention        = "mention"
)

// Field limits
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
	MaxCommentLength     = 2000
	MaxMessageLength     = 500
)

// Valid values for validation
var ValidTaskStatuses = []string{
	StatusTodo, StatusInProgress, StatusReview, StatusDone,
}

var ValidPriorities = []string{
	PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent,
}

var ValidProjectStatuses = []string{
	ProjectPlanning, ProjectActive, ProjectCompleted, ProjectOnHold,
}

var ValidMemberRoles = []string{
	RoleAdmin, RoleMember,
}

// NormalizeTaskStatus maps legacy spellings onto the canonical enum.
func NormalizeTaskStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "inprogress", "in_progress":
		return StatusInProgress
	case "in_review", "in-review":
		return StatusReview
	}
	return s
}

func IsValidTaskStatus(status string) bool {
	return contains(ValidTaskStatuses, status)
}

func IsValidPriority(priority string) bool {
	return contains(ValidPriorities, priority)
}

func IsValidProjectStatus(status string) bool {
	return contains(ValidProjectStatuses, status)
}

func IsValidMemberRole(role string) bool {
	return contains(ValidMemberRoles, role)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
