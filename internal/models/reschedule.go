package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleApproved RescheduleStatus = "approved"
	RescheduleRejected RescheduleStatus = "rejected"
)

// TaskReschedule is owned by the reschedule approval flow; the engine only reads it.
type TaskReschedule struct {
	ID               uuid.UUID        `gorm:"type:varchar(36);primarykey" json:"id"`
	TaskID           uuid.UUID        `gorm:"type:varchar(36);index;not null" json:"task_id"`
	StaffID          uuid.UUID        `gorm:"type:varchar(36);not null" json:"staff_id"`
	Reason           string           `gorm:"type:text" json:"reason"`
	OriginalDueDate  *time.Time       `json:"original_due_date"`
	RequestedDueDate time.Time        `json:"requested_due_date"`
	Status           RescheduleStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	AdminID          *uuid.UUID       `gorm:"type:varchar(36)" json:"admin_id"`
	AdminResponse    string           `gorm:"type:text" json:"admin_response"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (TaskReschedule) TableName() string {
	return "task_reschedules"
}

func (r *TaskReschedule) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
