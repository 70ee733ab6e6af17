package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskAssignment struct {
	TaskID     uuid.UUID `gorm:"type:varchar(36);primarykey" json:"task_id"`
	StaffID    uuid.UUID `gorm:"type:varchar(36);primarykey" json:"staff_id"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`

	// Relations
	Staff Staff `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
}

func (TaskAssignment) TableName() string {
	return "task_assignments"
}

type TaskTeamAssignment struct {
	TaskID    uuid.UUID `gorm:"type:varchar(36);primarykey" json:"task_id"`
	TeamID    uuid.UUID `gorm:"type:varchar(36);primarykey" json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (TaskTeamAssignment) TableName() string {
	return "task_team_assignments"
}
