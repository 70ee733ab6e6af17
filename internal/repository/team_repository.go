package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"gorm.io/gorm"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// List returns all teams with leader and members
func (r *GormTeamRepository) List(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.WithContext(ctx).
		Preload("Leader").
		Preload("Members", orderedBy("joined_at ASC")).
		Preload("Members.Staff").
		Order("name ASC").
		Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// FindByIDs returns the given teams with their leader loaded
func (r *GormTeamRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error) {
	if len(ids) == 0 {
		return []models.Team{}, nil
	}

	var teams []models.Team
	if err := r.db.WithContext(ctx).
		Preload("Leader").
		Where("id IN ?", ids).
		Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// FindMembers returns the memberships of the given teams with staff loaded
func (r *GormTeamRepository) FindMembers(ctx context.Context, teamIDs []uuid.UUID) ([]models.TeamMember, error) {
	if len(teamIDs) == 0 {
		return []models.TeamMember{}, nil
	}

	var members []models.TeamMember
	if err := r.db.WithContext(ctx).
		Preload("Staff").
		Where("team_id IN ?", teamIDs).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
