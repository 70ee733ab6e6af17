package models

import (
	"time"

	"github.com/google/uuid"
)

type TeamMember struct {
	TeamID   uuid.UUID `gorm:"type:varchar(36);primarykey" json:"team_id"`
	StaffID  uuid.UUID `gorm:"type:varchar(36);primarykey" json:"staff_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Staff Staff `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
