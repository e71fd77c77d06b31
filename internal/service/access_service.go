package service

import (
	"context"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
)

// ============================================
// Access Control
// ============================================
//
// Every membership and role comparison in the service layer goes through the
// functions in this file.

// ProjectRole returns the caller's role on the project: owner, admin, member,
// or "" when the user has no access.
func ProjectRole(project *repository.Project, userID string) string {
	if project == nil || userID == "" {
		return ""
	}
	if project.OwnerID == userID {
		return types.RoleOwner
	}
	for _, m := range project.Members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// HasAccess is true iff userID is the owner or appears in the member list.
func HasAccess(project *repository.Project, userID string) bool {
	return ProjectRole(project, userID) != ""
}

// IsAdmin is true iff userID is the owner or a member with role admin.
func IsAdmin(project *repository.Project, userID string) bool {
	role := ProjectRole(project, userID)
	return role == types.RoleOwner || role == types.RoleAdmin
}

// IsMember reports whether userID is explicitly listed in the project's members.
func IsMember(project *repository.Project, userID string) bool {
	for _, m := range project.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AdminEquivalents counts the owner plus every member with role admin.
func AdminEquivalents(project *repository.Project) int {
	n := 1
	for _, m := range project.Members {
		if m.Role == types.RoleAdmin {
			n++
		}
	}
	return n
}

// TaskMutation is the outcome of CanMutateTask. AsAdmin means the caller may
// change any field including the assignee.
type TaskMutation struct {
	Allowed bool
	AsAdmin bool
}

// CanMutateTask allows project admins outright and the current assignee
// without admin rights.
func CanMutateTask(project *repository.Project, task *repository.Task, userID string) TaskMutation {
	if task == nil || project == nil || task.ProjectID != project.ID {
		return TaskMutation{}
	}
	if IsAdmin(project, userID) {
		return TaskMutation{Allowed: true, AsAdmin: true}
	}
	if task.AssigneeID != nil && *task.AssigneeID == userID && HasAccess(project, userID) {
		return TaskMutation{Allowed: true}
	}
	return TaskMutation{}
}

// checkMemberChange enforces owner immunity and last-admin protection for a
// removal (newRole == "") or a role change of targetUserID. The owner always
// counts as an admin, so only the owner can ever be the last one.
func checkMemberChange(project *repository.Project, targetUserID, newRole string) error {
	if project.OwnerID == targetUserID {
		if AdminEquivalents(project) <= 1 {
			return apperrors.ErrLastAdmin
		}
		return apperrors.ErrOwnerMembership
	}
	if ProjectRole(project, targetUserID) == "" {
		return apperrors.ErrMemberNotFound
	}
	return nil
}

type AccessService interface {
	HasProjectAccess(ctx context.Context, projectID, userID string) (bool, error)
	IsProjectAdmin(ctx context.Context, projectID, userID string) (bool, error)
	CanMutateTask(ctx context.Context, task *repository.Task, userID string) (TaskMutation, error)

	// RequireProjectAccess loads the project and hides it from non-members as NotFound.
	RequireProjectAccess(ctx context.Context, projectID, userID string) (*repository.Project, error)
	// RequireProjectAdmin is RequireProjectAccess plus Forbidden for members without admin rights.
	RequireProjectAdmin(ctx context.Context, projectID, userID string) (*repository.Project, error)
}

type accessService struct {
	projectRepo repository.ProjectRepository
}

func NewAccessService(projectRepo repository.ProjectRepository) AccessService {
	return &accessService{projectRepo: projectRepo}
}

func (s *accessService) load(ctx context.Context, projectID string) (*repository.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, storeErr("load project", err)
	}
	return project, nil
}

func (s *accessService) HasProjectAccess(ctx context.Context, projectID, userID string) (bool, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return false, err
	}
	return HasAccess(project, userID), nil
}

func (s *accessService) IsProjectAdmin(ctx context.Context, projectID, userID string) (bool, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return false, err
	}
	return IsAdmin(project, userID), nil
}

func (s *accessService) CanMutateTask(ctx context.Context, task *repository.Task, userID string) (TaskMutation, error) {
	project, err := s.load(ctx, task.ProjectID)
	if err != nil {
		return TaskMutation{}, err
	}
	return CanMutateTask(project, task, userID), nil
}

func (s *accessService) RequireProjectAccess(ctx context.Context, projectID, userID string) (*repository.Project, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !HasAccess(project, userID) {
		return nil, apperrors.ErrProjectNotFound
	}
	return project, nil
}

func (s *accessService) RequireProjectAdmin(ctx context.Context, projectID, userID string) (*repository.Project, error) {
	project, err := s.RequireProjectAccess(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !IsAdmin(project, userID) {
		return nil, apperrors.ErrNotProjectAdmin
	}
	return project, nil
}
