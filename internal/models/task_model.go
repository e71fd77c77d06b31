package models

import "time"

// ============================================
// TASK REQUESTS & RESPONSES
// ============================================

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=100"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	DueDate     *time.Time `json:"dueDate" binding:"required"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Assignee    *string    `json:"assignee"`
}

// UpdateTaskRequest changes only the fields present. An empty assignee
// string unassigns the task.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=100"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	DueDate     *time.Time `json:"dueDate"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Assignee    *string    `json:"assignee"`
	Version     *int       `json:"version"`
}

type TaskListQuery struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Assignee string `form:"assignee"`
}

type TaskResponse struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	DueDate     *time.Time   `json:"dueDate"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority"`
	Assignee    *UserSummary `json:"assignee"`
	ProjectID   string       `json:"projectId"`
	CreatedBy   *UserSummary `json:"createdBy"`
	Version     int          `json:"version"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// ============================================
// COMMENT REQUESTS & RESPONSES
// ============================================

type CreateCommentRequest struct {
	Body          string  `json:"body" binding:"required,max=2000"`
	ParentComment *string `json:"parentComment"`
}

type UpdateCommentRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}

type CommentResponse struct {
	ID            string            `json:"id"`
	Body          string            `json:"body"`
	Author        *UserSummary      `json:"author"`
	ProjectID     string            `json:"projectId"`
	ParentComment *string           `json:"parentComment"`
	IsEdited      bool              `json:"isEdited"`
	Replies       []CommentResponse `json:"replies,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type CommentListResponse struct {
	Comments []CommentResponse `json:"comments"`
	Count    int               `json:"count"`
}
