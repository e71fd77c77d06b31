package service

import (
	"context"

	"github.com/Marga-Ghale/ora-collab-backend/internal/models"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
)

// Hydrator assembles response DTOs from stored entities, fetching every
// referenced user in one batched lookup per call.
type Hydrator struct {
	userRepo repository.UserRepository
}

func NewHydrator(userRepo repository.UserRepository) *Hydrator {
	return &Hydrator{userRepo: userRepo}
}

type userSet map[string]models.UserSummary

func (u userSet) summary(id string) models.UserSummary {
	if s, ok := u[id]; ok {
		return s
	}
	return models.UserSummary{ID: id}
}

func (u userSet) ref(id *string) *models.UserSummary {
	if id == nil {
		return nil
	}
	s := u.summary(*id)
	return &s
}

func (h *Hydrator) users(ctx context.Context, ids []string) (userSet, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	set := make(userSet, len(unique))
	if len(unique) == 0 {
		return set, nil
	}
	users, err := h.userRepo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, storeErr("load users", err)
	}
	for _, u := range users {
		set[u.ID] = models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return set, nil
}

func ToUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ============================================
// Projects
// ============================================

func projectUserIDs(p *repository.Project) []string {
	ids := []string{p.OwnerID}
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func toProjectResponse(p *repository.Project, users userSet, viewerID string) models.ProjectResponse {
	members := make([]models.ProjectMemberResponse, 0, len(p.Members))
	for _, m := range p.Members {
		joined := m.JoinedAt
		members = append(members, models.ProjectMemberResponse{
			User:     users.summary(m.UserID),
			Role:     m.Role,
			JoinedAt: &joined,
		})
	}
	return models.ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       users.summary(p.OwnerID),
		Members:     members,
		Status:      p.Status,
		Deadline:    p.Deadline,
		UserRole:    ProjectRole(p, viewerID),
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *Hydrator) Project(ctx context.Context, p *repository.Project, viewerID string) (models.ProjectResponse, error) {
	users, err := h.users(ctx, projectUserIDs(p))
	if err != nil {
		return models.ProjectResponse{}, err
	}
	return toProjectResponse(p, users, viewerID), nil
}

func (h *Hydrator) Projects(ctx context.Context, projects []*repository.Project, viewerID string) ([]models.ProjectResponse, error) {
	var ids []string
	for _, p := range projects {
		ids = append(ids, projectUserIDs(p)...)
	}
	users, err := h.users(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p, users, viewerID))
	}
	return out, nil
}

// Team lists the owner (role owner) followed by the explicit members.
func (h *Hydrator) Team(ctx context.Context, p *repository.Project) (models.TeamResponse, error) {
	users, err := h.users(ctx, projectUserIDs(p))
	if err != nil {
		return models.TeamResponse{}, err
	}
	team := []models.ProjectMemberResponse{{
		User: users.summary(p.OwnerID),
		Role: types.RoleOwner,
	}}
	for _, m := range p.Members {
		joined := m.JoinedAt
		team = append(team, models.ProjectMemberResponse{
			User:     users.summary(m.UserID),
			Role:     m.Role,
			JoinedAt: &joined,
		})
	}
	return models.TeamResponse{ProjectID: p.ID, Team: team, Count: len(team)}, nil
}

// ============================================
// Tasks
// ============================================

func toTaskResponse(t *repository.Task, users userSet) models.TaskResponse {
	createdBy := t.CreatedBy
	return models.TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Status:      t.Status,
		Priority:    t.Priority,
		Assignee:    users.ref(t.AssigneeID),
		ProjectID:   t.ProjectID,
		CreatedBy:   users.ref(&createdBy),
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func taskUserIDs(t *repository.Task) []string {
	ids := []string{t.CreatedBy}
	if t.AssigneeID != nil {
		ids = append(ids, *t.AssigneeID)
	}
	return ids
}

func (h *Hydrator) Task(ctx context.Context, t *repository.Task) (models.TaskResponse, error) {
	users, err := h.users(ctx, taskUserIDs(t))
	if err != nil {
		return models.TaskResponse{}, err
	}
	return toTaskResponse(t, users), nil
}

func (h *Hydrator) Tasks(ctx context.Context, tasks []*repository.Task) ([]models.TaskResponse, error) {
	var ids []string
	for _, t := range tasks {
		ids = append(ids, taskUserIDs(t)...)
	}
	users, err := h.users(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t, users))
	}
	return out, nil
}

// ============================================
// Comments
// ============================================

func toCommentResponse(c *repository.Comment, users userSet) models.CommentResponse {
	author := c.AuthorID
	return models.CommentResponse{
		ID:            c.ID,
		Body:          c.Body,
		Author:        users.ref(&author),
		ProjectID:     c.ProjectID,
		ParentComment: c.ParentID,
		IsEdited:      c.IsEdited,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (h *Hydrator) Comment(ctx context.Context, c *repository.Comment) (models.CommentResponse, error) {
	users, err := h.users(ctx, []string{c.AuthorID})
	if err != nil {
		return models.CommentResponse{}, err
	}
	return toCommentResponse(c, users), nil
}

func (h *Hydrator) Threads(ctx context.Context, threads []*CommentThread) ([]models.CommentResponse, error) {
	var ids []string
	for _, t := range threads {
		ids = append(ids, t.Comment.AuthorID)
		for _, r := range t.Replies {
			ids = append(ids, r.AuthorID)
		}
	}
	users, err := h.users(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.CommentResponse, 0, len(threads))
	for _, t := range threads {
		resp := toCommentResponse(t.Comment, users)
		resp.Replies = make([]models.CommentResponse, 0, len(t.Replies))
		for _, r := range t.Replies {
			resp.Replies = append(resp.Replies, toCommentResponse(r, users))
		}
		out = append(out, resp)
	}
	return out, nil
}

// ============================================
// Notifications
// ============================================

func ToNotificationResponse(n *repository.Notification) models.NotificationResponse {
	return models.NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Message:   n.Message,
		ProjectID: n.ProjectID,
		TaskID:    n.TaskID,
		CommentID: n.CommentID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
