package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/repository"
)

// TeamService provides read access to teams.
type TeamService struct {
	teamRepo repository.TeamRepository
}

// NewTeamService creates a new TeamService.
func NewTeamService(teamRepo repository.TeamRepository) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
	}
}

// ListTeams returns every team with its leader and members.
func (s *TeamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// ResolveStaff returns the effective staff of the given teams, as a
// team-allocated task would see them.
func (s *TeamService) ResolveStaff(ctx context.Context, teamIDs []uuid.UUID) ([]models.Staff, error) {
	return ExpandTeams(ctx, s.teamRepo, teamIDs)
}
