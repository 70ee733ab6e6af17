package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/repository"
	"github.com/yukikurage/taskflow/internal/utils"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService exposes a staff member's notification inbox
type NotificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// ListNotifications returns one page of userID's notifications, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.Notification, int64, error) {
	notifications, total, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkViewed flags one of userID's notifications as viewed
func (s *NotificationService) MarkViewed(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkViewed(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification viewed: %w", err)
	}
	return nil
}
