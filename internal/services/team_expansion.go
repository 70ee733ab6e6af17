package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/repository"
)

// ExpandTeams resolves the effective staff of teamIDs: for each team in the
// given order its members by join time, then its leader. Staff appearing in
// several places are kept once, at their first position.
func ExpandTeams(ctx context.Context, teams repository.TeamRepository, teamIDs []uuid.UUID) ([]models.Staff, error) {
	teamIDs = uniqueIDs(teamIDs)
	if len(teamIDs) == 0 {
		return []models.Staff{}, nil
	}

	found, err := teams.FindByIDs(ctx, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	members, err := teams.FindMembers(ctx, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}

	leaders := make(map[uuid.UUID]*models.Staff, len(found))
	for i := range found {
		if found[i].Leader != nil {
			leaders[found[i].ID] = found[i].Leader
		}
	}

	byTeam := make(map[uuid.UUID][]models.Staff, len(teamIDs))
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m.Staff)
	}

	seen := make(map[uuid.UUID]struct{})
	staff := make([]models.Staff, 0, len(members)+len(leaders))
	add := func(s models.Staff) {
		// Memberships of deleted staff preload as zero values
		if s.ID == uuid.Nil {
			return
		}
		if _, ok := seen[s.ID]; ok {
			return
		}
		seen[s.ID] = struct{}{}
		staff = append(staff, s)
	}

	for _, teamID := range teamIDs {
		for _, s := range byTeam[teamID] {
			add(s)
		}
		if leader, ok := leaders[teamID]; ok {
			add(*leader)
		}
	}

	return staff, nil
}

func staffIDs(staff []models.Staff) []uuid.UUID {
	ids := make([]uuid.UUID, len(staff))
	for i, s := range staff {
		ids[i] = s.ID
	}
	return ids
}

// uniqueIDs removes duplicates and nil ids, preserving order
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
