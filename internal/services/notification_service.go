package services

import (
	"context"
	"fmt"

	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
)

// NotificationService reads the audit notification log.
type NotificationService interface {
	GetNotifications(ctx context.Context, tone *string, page, pageSize int) ([]models.Notification, int, error)
}

type notificationService struct {
	repo repositories.NotificationRepository
}

// NewNotificationService creates a new instance of NotificationService.
func NewNotificationService(repo repositories.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) GetNotifications(ctx context.Context, tone *string, page, pageSize int) ([]models.Notification, int, error) {
	if tone != nil && *tone != "" && *tone != models.ToneInfo && *tone != models.ToneError {
		return nil, 0, fmt.Errorf("%w: tone must be '%s' or '%s'", ErrValidation, models.ToneInfo, models.ToneError)
	}
	page, pageSize = normalizePaging(page, pageSize)
	entries, total, err := s.repo.List(ctx, tone, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notifications: %w", err)
	}
	return entries, total, nil
}
