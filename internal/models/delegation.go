package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DelegationStatus string

const (
	DelegationActive    DelegationStatus = "active"
	DelegationCompleted DelegationStatus = "completed"
	DelegationVerified  DelegationStatus = "verified"
)

// TaskDelegation records one hand-off of a task from a delegator to a delegatee.
type TaskDelegation struct {
	ID                     uuid.UUID        `gorm:"type:varchar(36);primarykey" json:"id"`
	TaskID                 uuid.UUID        `gorm:"type:varchar(36);index;not null" json:"task_id"`
	FromStaffID            uuid.UUID        `gorm:"type:varchar(36);not null" json:"from_staff_id"`
	ToStaffID              uuid.UUID        `gorm:"type:varchar(36);index;not null" json:"to_staff_id"`
	Notes                  string           `gorm:"type:text" json:"notes"`
	Status                 DelegationStatus `gorm:"column:delegation_status;type:varchar(20);not null;default:'active'" json:"delegation_status"`
	CompletedByDelegateeAt *time.Time       `json:"completed_by_delegatee_at"`
	VerifiedByDelegatorAt  *time.Time       `json:"verified_by_delegator_at"`
	DelegateeNotes         *string          `gorm:"type:text" json:"delegatee_notes"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`

	// Relations
	FromStaff Staff `gorm:"foreignKey:FromStaffID" json:"from_staff,omitempty"`
	ToStaff   Staff `gorm:"foreignKey:ToStaffID" json:"to_staff,omitempty"`
}

func (TaskDelegation) TableName() string {
	return "task_delegations"
}

func (d *TaskDelegation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
