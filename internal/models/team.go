package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Team struct {
	ID        uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	LeaderID  *uuid.UUID     `gorm:"type:varchar(36)" json:"leader_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Leader  *Staff       `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

func (Team) TableName() string {
	return "teams"
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
