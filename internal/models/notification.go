package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Notification struct {
	ID          uuid.UUID         `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Type        string            `gorm:"type:varchar(50);not null" json:"type"`
	Title       string            `gorm:"type:varchar(255);not null" json:"title"`
	Message     string            `gorm:"type:text" json:"message"`
	ReferenceID *uuid.UUID        `gorm:"type:varchar(36)" json:"reference_id"`
	Viewed      bool              `gorm:"not null;default:false" json:"viewed"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
