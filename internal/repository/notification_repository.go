package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/database"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/utils"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create inserts a notification
func (r *GormNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListForUser lists notifications for a staff member, newest first
func (r *GormNotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.Notification, int64, error) {
	inbox := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	}

	var total int64
	if err := inbox().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	if err := inbox().
		Scopes(database.NewestFirst("notifications"), database.Paginate(params)).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkViewed flags a notification of userID as viewed
func (r *GormNotificationRepository) MarkViewed(ctx context.Context, id, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("viewed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
