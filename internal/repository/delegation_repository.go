package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"gorm.io/gorm"
)

// ErrDelegationStateChanged is returned when a transition finds the delegation
// no longer in the state it was read in.
var ErrDelegationStateChanged = errors.New("delegation repository: delegation state changed concurrently")

// GormDelegationRepository is a GORM implementation of DelegationRepository
type GormDelegationRepository struct {
	db *gorm.DB
}

// NewDelegationRepository creates a new DelegationRepository
func NewDelegationRepository(db *gorm.DB) DelegationRepository {
	return &GormDelegationRepository{db: db}
}

// Create records a new hand-off
func (r *GormDelegationRepository) Create(ctx context.Context, delegation *models.TaskDelegation) error {
	return r.db.WithContext(ctx).Omit("FromStaff", "ToStaff").Create(delegation).Error
}

// FindByID finds a delegation with both parties loaded
func (r *GormDelegationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TaskDelegation, error) {
	var delegation models.TaskDelegation
	if err := r.db.WithContext(ctx).
		Preload("FromStaff").
		Preload("ToStaff").
		Where("id = ?", id).
		First(&delegation).Error; err != nil {
		return nil, err
	}
	return &delegation, nil
}

// FindActiveForDelegatee finds the active delegation of a task handed to staffID
func (r *GormDelegationRepository) FindActiveForDelegatee(ctx context.Context, taskID, staffID uuid.UUID) (*models.TaskDelegation, error) {
	var delegation models.TaskDelegation
	if err := r.db.WithContext(ctx).
		Preload("FromStaff").
		Where("task_id = ? AND to_staff_id = ? AND delegation_status = ?", taskID, staffID, models.DelegationActive).
		Order("created_at DESC").
		First(&delegation).Error; err != nil {
		return nil, err
	}
	return &delegation, nil
}

// MarkCompleted moves an active delegation to completed
func (r *GormDelegationRepository) MarkCompleted(ctx context.Context, id uuid.UUID, notes *string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.TaskDelegation{}).
		Where("id = ? AND delegation_status = ?", id, models.DelegationActive).
		Updates(map[string]interface{}{
			"delegation_status":         models.DelegationCompleted,
			"completed_by_delegatee_at": at,
			"delegatee_notes":           notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDelegationStateChanged
	}
	return nil
}

// MarkVerified moves a completed delegation to verified and completes its task
func (r *GormDelegationRepository) MarkVerified(ctx context.Context, delegation *models.TaskDelegation, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TaskDelegation{}).
			Where("id = ? AND delegation_status = ?", delegation.ID, models.DelegationCompleted).
			Updates(map[string]interface{}{
				"delegation_status":        models.DelegationVerified,
				"verified_by_delegator_at": at,
			})
		if res.Error != nil {
			return fmt.Errorf("verify delegation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrDelegationStateChanged
		}

		return setTaskStatus(tx, delegation.TaskID, models.TaskStatusCompleted)
	})
}

// Reopen moves a completed delegation back to active and puts its task in progress
func (r *GormDelegationRepository) Reopen(ctx context.Context, delegation *models.TaskDelegation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TaskDelegation{}).
			Where("id = ? AND delegation_status = ?", delegation.ID, models.DelegationCompleted).
			Updates(map[string]interface{}{
				"delegation_status":         models.DelegationActive,
				"completed_by_delegatee_at": nil,
				"delegatee_notes":           nil,
			})
		if res.Error != nil {
			return fmt.Errorf("reopen delegation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrDelegationStateChanged
		}

		return setTaskStatus(tx, delegation.TaskID, models.TaskStatusInProgress)
	})
}

func setTaskStatus(tx *gorm.DB, taskID uuid.UUID, status models.TaskStatus) error {
	res := tx.Model(&models.Task{}).Where("id = ?", taskID).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update task status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
