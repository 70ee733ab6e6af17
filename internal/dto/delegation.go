package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/utils"
)

// DelegateRequest is the body of a hand-off request
type DelegateRequest struct {
	ToStaffID uuid.UUID `json:"to_staff_id" binding:"required"`
	Notes     string    `json:"notes"`
}

// RejectDelegationRequest carries the reason sent back to the delegatee
type RejectDelegationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DelegationDTO represents a delegation in API responses
type DelegationDTO struct {
	ID             uuid.UUID               `json:"id"`
	TaskID         uuid.UUID               `json:"task_id"`
	FromStaffID    uuid.UUID               `json:"from_staff_id"`
	ToStaffID      uuid.UUID               `json:"to_staff_id"`
	Notes          string                  `json:"notes"`
	Status         models.DelegationStatus `json:"delegation_status"`
	CompletedAt    *time.Time              `json:"completed_by_delegatee_at"`
	VerifiedAt     *time.Time              `json:"verified_by_delegator_at"`
	DelegateeNotes *string                 `json:"delegatee_notes"`
	CreatedAt      time.Time               `json:"created_at"`
}

// NotificationListResponse represents one page of notifications
type NotificationListResponse struct {
	Notifications []models.Notification    `json:"notifications"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// ToDelegationDTO converts a TaskDelegation model to DelegationDTO
func ToDelegationDTO(d models.TaskDelegation) DelegationDTO {
	return DelegationDTO{
		ID:             d.ID,
		TaskID:         d.TaskID,
		FromStaffID:    d.FromStaffID,
		ToStaffID:      d.ToStaffID,
		Notes:          d.Notes,
		Status:         d.Status,
		CompletedAt:    d.CompletedByDelegateeAt,
		VerifiedAt:     d.VerifiedByDelegatorAt,
		DelegateeNotes: d.DelegateeNotes,
		CreatedAt:      d.CreatedAt,
	}
}
