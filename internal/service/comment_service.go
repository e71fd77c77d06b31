package service

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
)

// maxMentions caps how many distinct @email tokens one comment may resolve.
const maxMentions = 20

var mentionRegex = regexp.MustCompile(`@([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)

// ParseMentions returns the distinct, lower-cased emails mentioned in body, in order.
func ParseMentions(body string) []string {
	seen := make(map[string]bool)
	var emails []string
	for _, m := range mentionRegex.FindAllStringSubmatch(body, -1) {
		email := strings.ToLower(strings.TrimRight(m[1], "."))
		if seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
		if len(emails) == maxMentions {
			break
		}
	}
	return emails
}

// ============================================
// Comment Service
// ============================================

// CommentThread is a top-level comment with its direct replies, oldest first.
type CommentThread struct {
	Comment *repository.Comment
	Replies []*repository.Comment
}

type CommentService interface {
	Create(ctx context.Context, ident Identity, projectID, body string, parentID *string) (*repository.Comment, error)
	List(ctx context.Context, ident Identity, projectID string) ([]*CommentThread, error)
	Update(ctx context.Context, ident Identity, id, body string) (*repository.Comment, error)
	Delete(ctx context.Context, ident Identity, id string) error
}

type commentService struct {
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	access      AccessService
	notifier    Notifier
	broadcaster Broadcaster
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	access AccessService,
	notifier Notifier,
	broadcaster Broadcaster,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		userRepo:    userRepo,
		access:      access,
		notifier:    notifier,
		broadcaster: broadcaster,
	}
}

func validateBody(body string) error {
	if body == "" {
		return apperrors.Validation("body", "comment body is required")
	}
	if utf8.RuneCountInString(body) > types.MaxCommentLength {
		return apperrors.Validation("body", "comment must be at most 2000 characters")
	}
	return nil
}

func (s *commentService) Create(ctx context.Context, ident Identity, projectID, body string, parentID *string) (*repository.Comment, error) {
	project, err := s.access.RequireProjectAccess(ctx, projectID, ident.UserID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if err := validateBody(body); err != nil {
		return nil, err
	}

	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		parentID = nil
	}
	if parentID != nil {
		parent, err := s.commentRepo.FindByID(ctx, *parentID)
		if err != nil {
			return nil, storeErr("find parent comment", err)
		}
		if parent == nil || parent.ProjectID != project.ID {
			return nil, apperrors.ErrParentNotInProject
		}
		if parent.ParentID != nil {
			return nil, apperrors.ErrNestedReply
		}
	}

	comment := &repository.Comment{
		Body:      body,
		AuthorID:  ident.UserID,
		ProjectID: project.ID,
		ParentID:  parentID,
		Mentions:  s.resolveMentions(ctx, project, body, ident.UserID),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, storeErr("create comment", err)
	}

	for _, userID := range comment.Mentions {
		s.notifier.Mention(userID, comment, nil)
	}
	s.broadcaster.ProjectEvent(project.ID, EventCommentCreated, map[string]interface{}{
		"projectId": project.ID,
		"commentId": comment.ID,
		"parentId":  comment.ParentID,
	}, ident.UserID)
	return comment, nil
}

// resolveMentions maps @email tokens to project members other than the author.
// Lookup failures drop the mention rather than the comment.
func (s *commentService) resolveMentions(ctx context.Context, project *repository.Project, body, authorID string) []string {
	var ids []string
	for _, email := range ParseMentions(body) {
		user, err := s.userRepo.FindByEmail(ctx, email)
		if err != nil {
			log.Printf("[Comment] mention lookup for %s failed: %v", email, err)
			continue
		}
		if user == nil || user.ID == authorID || !HasAccess(project, user.ID) {
			continue
		}
		ids = append(ids, user.ID)
	}
	return ids
}

func (s *commentService) List(ctx context.Context, ident Identity, projectID string) ([]*CommentThread, error) {
	if _, err := s.access.RequireProjectAccess(ctx, projectID, ident.UserID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	return BuildThreads(comments), nil
}

// BuildThreads nests replies under their parents. Input is expected oldest first;
// replies whose parent is absent are dropped.
func BuildThreads(comments []*repository.Comment) []*CommentThread {
	threads := make([]*CommentThread, 0)
	byID := make(map[string]*CommentThread)
	for _, c := range comments {
		if c.ParentID == nil {
			t := &CommentThread{Comment: c, Replies: []*repository.Comment{}}
			threads = append(threads, t)
			byID[c.ID] = t
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if t, ok := byID[*c.ParentID]; ok {
			t.Replies = append(t.Replies, c)
		}
	}
	return threads
}

// load finds the comment and its project. Callers outside the project see NotFound.
func (s *commentService) load(ctx context.Context, ident Identity, id string) (*repository.Comment, *repository.Project, error) {
	comment, err := s.commentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr("find comment", err)
	}
	if comment == nil {
		return nil, nil, apperrors.ErrCommentNotFound
	}
	project, err := s.access.RequireProjectAccess(ctx, comment.ProjectID, ident.UserID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, nil, apperrors.ErrCommentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return comment, project, nil
}

// Update replaces the body. Only the author may edit.
func (s *commentService) Update(ctx context.Context, ident Identity, id, body string) (*repository.Comment, error) {
	comment, project, err := s.load(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != ident.UserID {
		return nil, apperrors.ErrNotCommentAuthor
	}
	body = strings.TrimSpace(body)
	if err := validateBody(body); err != nil {
		return nil, err
	}

	previous := make(map[string]bool, len(comment.Mentions))
	for _, id := range comment.Mentions {
		previous[id] = true
	}

	comment.Body = body
	comment.Mentions = s.resolveMentions(ctx, project, body, ident.UserID)
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, storeErr("update comment", err)
	}

	for _, userID := range comment.Mentions {
		if !previous[userID] {
			s.notifier.Mention(userID, comment, nil)
		}
	}
	s.broadcaster.ProjectEvent(comment.ProjectID, EventCommentUpdated, map[string]interface{}{
		"projectId": comment.ProjectID,
		"commentId": comment.ID,
	}, ident.UserID)
	return comment, nil
}

// Delete removes a comment. Deleting a top-level comment removes its replies first.
func (s *commentService) Delete(ctx context.Context, ident Identity, id string) error {
	comment, project, err := s.load(ctx, ident, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != ident.UserID && !IsAdmin(project, ident.UserID) {
		return apperrors.ErrCommentDeleteDenied
	}

	if comment.ParentID == nil {
		if _, err := s.commentRepo.DeleteReplies(ctx, comment.ID); err != nil {
			return storeErr("delete replies", err)
		}
	}
	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return storeErr("delete comment", err)
	}

	s.broadcaster.ProjectEvent(comment.ProjectID, EventCommentDeleted, map[string]interface{}{
		"projectId": comment.ProjectID,
		"commentId": comment.ID,
	}, ident.UserID)
	return nil
}
