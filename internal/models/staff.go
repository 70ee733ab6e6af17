package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffRole string

const (
	RoleAdmin StaffRole = "admin"
	RoleStaff StaffRole = "staff"
)

type Staff struct {
	ID           uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255)" json:"-"`
	Role         StaffRole      `gorm:"type:varchar(20);not null;default:'staff'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Staff) TableName() string {
	return "staff"
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
