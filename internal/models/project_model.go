package models

import "time"

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required,max=100"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	Status      string     `json:"status" binding:"omitempty,oneof=planning active completed on-hold"`
	Deadline    *time.Time `json:"deadline"`
	Members     []string   `json:"members"`
}

// UpdateProjectRequest changes only the fields present. Version, when sent,
// must equal the stored version.
type UpdateProjectRequest struct {
	Name          *string    `json:"name" binding:"omitempty,max=100"`
	Description   *string    `json:"description" binding:"omitempty,max=1000"`
	Status        *string    `json:"status" binding:"omitempty,oneof=planning active completed on-hold"`
	Deadline      *time.Time `json:"deadline"`
	ClearDeadline bool       `json:"clearDeadline"`
	Version       *int       `json:"version"`
}

type ProjectListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Search string `form:"search"`
	Status string `form:"status"`
}

type ProjectResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	Owner       UserSummary             `json:"owner"`
	Members     []ProjectMemberResponse `json:"members"`
	Status      string                  `json:"status"`
	Deadline    *time.Time              `json:"deadline,omitempty"`
	UserRole    string                  `json:"userRole,omitempty"`
	Version     int                     `json:"version"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

type ProjectListResponse struct {
	Projects   []ProjectResponse `json:"projects"`
	Pagination Pagination        `json:"pagination"`
}
