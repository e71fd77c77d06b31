package models

import "time"

// ============================================
// Member Management Models
// ============================================

// AddMemberRequest names the user by UserID or Email.
type AddMemberRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email" binding:"omitempty,email"`
	Role   string `json:"role" binding:"omitempty,oneof=admin member"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

type ProjectMemberResponse struct {
	User     UserSummary `json:"user"`
	Role     string      `json:"role"`
	JoinedAt *time.Time  `json:"joinedAt,omitempty"`
}

// TeamResponse lists the owner first, then explicit members in join order.
type TeamResponse struct {
	ProjectID string                  `json:"projectId"`
	Team      []ProjectMemberResponse `json:"team"`
	Count     int                     `json:"count"`
}
