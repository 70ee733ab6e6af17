package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"gorm.io/gorm"
)

// GormStaffRepository is a GORM implementation of StaffRepository
type GormStaffRepository struct {
	db *gorm.DB
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &GormStaffRepository{db: db}
}

// Create creates a new staff member
func (r *GormStaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	return r.db.WithContext(ctx).Create(staff).Error
}

// FindByID finds a staff member by ID
func (r *GormStaffRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// FindByIDs returns the staff records for ids, in the order of ids. Unknown
// ids are skipped.
func (r *GormStaffRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Staff, error) {
	if len(ids) == 0 {
		return []models.Staff{}, nil
	}

	var found []models.Staff
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Staff, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	ordered := make([]models.Staff, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// FindByEmail finds a staff member by email
func (r *GormStaffRepository) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// ListByRole lists all staff holding a role
func (r *GormStaffRepository) ListByRole(ctx context.Context, role models.StaffRole) ([]models.Staff, error) {
	var staff []models.Staff
	if err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}
