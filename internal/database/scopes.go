package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// NewestFirst orders rows by creation time, most recent first.
func NewestFirst(table string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".created_at DESC")
	}
}
