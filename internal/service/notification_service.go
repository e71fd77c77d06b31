package service

import (
	"context"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
)

// ============================================
// Notification Service (recipient inbox)
// ============================================

type NotificationService interface {
	List(ctx context.Context, ident Identity, unreadOnly bool) ([]*repository.Notification, error)
	Count(ctx context.Context, ident Identity) (total int, unread int, err error)
	MarkAsRead(ctx context.Context, ident Identity, id string) error
	MarkAllAsRead(ctx context.Context, ident Identity) (int, error)
	Delete(ctx context.Context, ident Identity, id string) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationService(notificationRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

func (s *notificationService) List(ctx context.Context, ident Identity, unreadOnly bool) ([]*repository.Notification, error) {
	notifications, err := s.notificationRepo.FindByUserID(ctx, ident.UserID, unreadOnly)
	if err != nil {
		return nil, storeErr("list notifications", err)
	}
	return notifications, nil
}

func (s *notificationService) Count(ctx context.Context, ident Identity) (int, int, error) {
	total, unread, err := s.notificationRepo.CountByUserID(ctx, ident.UserID)
	if err != nil {
		return 0, 0, storeErr("count notifications", err)
	}
	return total, unread, nil
}

// MarkAsRead reports another user's notification as missing.
func (s *notificationService) MarkAsRead(ctx context.Context, ident Identity, id string) error {
	found, err := s.notificationRepo.MarkAsRead(ctx, id, ident.UserID)
	if err != nil {
		return storeErr("mark notification read", err)
	}
	if !found {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, ident Identity) (int, error) {
	n, err := s.notificationRepo.MarkAllAsRead(ctx, ident.UserID)
	if err != nil {
		return 0, storeErr("mark notifications read", err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, ident Identity, id string) error {
	found, err := s.notificationRepo.Delete(ctx, id, ident.UserID)
	if err != nil {
		return storeErr("delete notification", err)
	}
	if !found {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}
