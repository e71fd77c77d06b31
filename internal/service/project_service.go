package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ============================================
// Project Service (Membership Model)
// ============================================

type CreateProjectInput struct {
	Name        string
	Description *string
	Status      string
	Deadline    *time.Time
	MemberIDs   []string
}

// UpdateProjectInput holds the fields to change; nil leaves a field as is.
// Version, when set, must match the stored version.
type UpdateProjectInput struct {
	Name          *string
	Description   *string
	Status        *string
	Deadline      *time.Time
	ClearDeadline bool
	Version       *int
}

type ProjectQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
}

type ProjectPage struct {
	Projects []*repository.Project
	Total    int
	Page     int
	Limit    int
	Pages    int
}

// AddMemberInput names the target by UserID or, failing that, by Email.
type AddMemberInput struct {
	UserID string
	Email  string
	Role   string
}

type ProjectService interface {
	Create(ctx context.Context, ident Identity, in CreateProjectInput) (*repository.Project, error)
	Get(ctx context.Context, ident Identity, id string) (*repository.Project, error)
	List(ctx context.Context, ident Identity, q ProjectQuery) (*ProjectPage, error)
	Update(ctx context.Context, ident Identity, id string, in UpdateProjectInput) (*repository.Project, error)
	Delete(ctx context.Context, ident Identity, id string) error

	AddMember(ctx context.Context, ident Identity, projectID string, in AddMemberInput) (*repository.Project, error)
	RemoveMember(ctx context.Context, ident Identity, projectID, userID string) (*repository.Project, error)
	UpdateMemberRole(ctx context.Context, ident Identity, projectID, userID, role string) (*repository.Project, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	access      AccessService
	broadcaster Broadcaster
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	access AccessService,
	broadcaster Broadcaster,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		access:      access,
		broadcaster: broadcaster,
	}
}

func validateProjectFields(name string, description *string, status string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.Validation("name", "project name is required")
	}
	if utf8.RuneCountInString(name) > types.MaxNameLength {
		return apperrors.Validation("name", "project name must be at most 100 characters")
	}
	if description != nil && utf8.RuneCountInString(*description) > types.MaxDescriptionLength {
		return apperrors.Validation("description", "description must be at most 1000 characters")
	}
	if !types.IsValidProjectStatus(status) {
		return apperrors.Validation("status", "status must be one of planning, active, completed, on-hold")
	}
	return nil
}

func (s *projectService) Create(ctx context.Context, ident Identity, in CreateProjectInput) (*repository.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = types.ProjectPlanning
	}
	if err := validateProjectFields(in.Name, in.Description, in.Status); err != nil {
		return nil, err
	}

	memberIDs := uniqueIDs(in.MemberIDs, ident.UserID)
	if len(memberIDs) > 0 {
		users, err := s.userRepo.FindByIDs(ctx, memberIDs)
		if err != nil {
			return nil, storeErr("find users", err)
		}
		if len(users) != len(memberIDs) {
			return nil, apperrors.ErrUserNotFound
		}
	}

	project := &repository.Project{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     ident.UserID,
		Status:      in.Status,
		Deadline:    in.Deadline,
	}
	for _, id := range memberIDs {
		project.Members = append(project.Members, repository.ProjectMember{UserID: id, Role: types.RoleMember})
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrAlreadyMember
		}
		return nil, storeErr("create project", err)
	}
	return project, nil
}

// uniqueIDs drops blanks, duplicates and the owner while keeping first-seen order.
func uniqueIDs(ids []string, ownerID string) []string {
	seen := map[string]bool{ownerID: true}
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *projectService) Get(ctx context.Context, ident Identity, id string) (*repository.Project, error) {
	return s.access.RequireProjectAccess(ctx, id, ident.UserID)
}

func (s *projectService) List(ctx context.Context, ident Identity, q ProjectQuery) (*ProjectPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Status != "" && !types.IsValidProjectStatus(q.Status) {
		return nil, apperrors.Validation("status", "status must be one of planning, active, completed, on-hold")
	}

	projects, total, err := s.projectRepo.List(ctx, repository.ProjectFilter{
		UserID: ident.UserID,
		Search: strings.TrimSpace(q.Search),
		Status: q.Status,
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, storeErr("list projects", err)
	}

	return &ProjectPage{
		Projects: projects,
		Total:    total,
		Page:     q.Page,
		Limit:    q.Limit,
		Pages:    int(math.Ceil(float64(total) / float64(q.Limit))),
	}, nil
}

// Update changes project fields. Only the owner may do this.
func (s *projectService) Update(ctx context.Context, ident Identity, id string, in UpdateProjectInput) (*repository.Project, error) {
	project, err := s.access.RequireProjectAccess(ctx, id, ident.UserID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != ident.UserID {
		return nil, apperrors.ErrNotProjectOwner
	}
	if in.Version != nil && *in.Version != project.Version {
		return nil, apperrors.ErrStaleWrite
	}

	if in.Name != nil {
		project.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		project.Description = in.Description
	}
	if in.Status != nil {
		project.Status = *in.Status
	}
	if in.Deadline != nil {
		project.Deadline = in.Deadline
	}
	if in.ClearDeadline {
		project.Deadline = nil
	}
	if err := validateProjectFields(project.Name, project.Description, project.Status); err != nil {
		return nil, err
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, writeErr("update project", err)
	}

	s.broadcaster.ProjectEvent(project.ID, EventProjectUpdated, map[string]interface{}{
		"projectId": project.ID,
		"version":   project.Version,
	}, ident.UserID)
	return project, nil
}

// Delete removes comments, then tasks, then the project itself. A failure part
// way leaves the project in place with fewer children, so the call can be retried.
func (s *projectService) Delete(ctx context.Context, ident Identity, id string) error {
	project, err := s.access.RequireProjectAccess(ctx, id, ident.UserID)
	if err != nil {
		return err
	}
	if project.OwnerID != ident.UserID {
		return apperrors.ErrNotProjectOwner
	}

	if err := s.commentRepo.DeleteByProject(ctx, id); err != nil {
		return storeErr("delete project comments", err)
	}
	if err := s.taskRepo.DeleteByProject(ctx, id); err != nil {
		return storeErr("delete project tasks", err)
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return storeErr("delete project", err)
	}

	s.broadcaster.ProjectEvent(id, EventProjectDeleted, map[string]interface{}{"projectId": id}, ident.UserID)
	return nil
}

func (s *projectService) AddMember(ctx context.Context, ident Identity, projectID string, in AddMemberInput) (*repository.Project, error) {
	project, err := s.access.RequireProjectAdmin(ctx, projectID, ident.UserID)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = types.RoleMember
	}
	if !types.IsValidMemberRole(role) {
		return nil, apperrors.Validation("role", "role must be admin or member")
	}

	user, err := s.resolveUser(ctx, in)
	if err != nil {
		return nil, err
	}
	if user.ID == project.OwnerID {
		return nil, apperrors.ErrOwnerMembership
	}
	if IsMember(project, user.ID) {
		return nil, apperrors.ErrAlreadyMember
	}

	err = s.projectRepo.AddMember(ctx, project.ID, project.Version, repository.ProjectMember{
		UserID: user.ID,
		Role:   role,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.ErrAlreadyMember
	}
	if err != nil {
		return nil, writeErr("add member", err)
	}

	s.broadcaster.ProjectEvent(project.ID, EventMemberAdded, map[string]interface{}{
		"projectId": project.ID,
		"userId":    user.ID,
		"role":      role,
	}, ident.UserID)
	return s.reload(ctx, project.ID)
}

func (s *projectService) resolveUser(ctx context.Context, in AddMemberInput) (*repository.User, error) {
	var (
		user *repository.User
		err  error
	)
	switch {
	case strings.TrimSpace(in.UserID) != "":
		user, err = s.userRepo.FindByID(ctx, strings.TrimSpace(in.UserID))
	case strings.TrimSpace(in.Email) != "":
		user, err = s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	default:
		return nil, apperrors.Validation("userId", "userId or email is required")
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *projectService) RemoveMember(ctx context.Context, ident Identity, projectID, userID string) (*repository.Project, error) {
	project, err := s.access.RequireProjectAdmin(ctx, projectID, ident.UserID)
	if err != nil {
		return nil, err
	}
	if err := checkMemberChange(project, userID, ""); err != nil {
		return nil, err
	}

	if err := s.projectRepo.RemoveMember(ctx, project.ID, project.Version, userID); err != nil {
		return nil, writeErr("remove member", err)
	}

	s.broadcaster.ProjectEvent(project.ID, EventMemberRemoved, map[string]interface{}{
		"projectId": project.ID,
		"userId":    userID,
	}, ident.UserID)
	return s.reload(ctx, project.ID)
}

func (s *projectService) UpdateMemberRole(ctx context.Context, ident Identity, projectID, userID, role string) (*repository.Project, error) {
	if !types.IsValidMemberRole(role) {
		return nil, apperrors.Validation("role", "role must be admin or member")
	}
	project, err := s.access.RequireProjectAdmin(ctx, projectID, ident.UserID)
	if err != nil {
		return nil, err
	}
	if err := checkMemberChange(project, userID, role); err != nil {
		return nil, err
	}
	if ProjectRole(project, userID) == role {
		return project, nil
	}

	if err := s.projectRepo.UpdateMemberRole(ctx, project.ID, project.Version, userID, role); err != nil {
		return nil, writeErr("update member role", err)
	}

	s.broadcaster.ProjectEvent(project.ID, EventMemberRoleUpdated, map[string]interface{}{
		"projectId": project.ID,
		"userId":    userID,
		"role":      role,
	}, ident.UserID)
	return s.reload(ctx, project.ID)
}

func (s *projectService) reload(ctx context.Context, id string) (*repository.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("load project", err)
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	return project, nil
}
