package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
)

// StaffDTO represents a staff member in API responses
type StaffDTO struct {
	ID    uuid.UUID        `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Role  models.StaffRole `json:"role"`
}

// TeamMemberDTO represents a member in a team
type TeamMemberDTO struct {
	Staff    StaffDTO  `json:"staff"`
	JoinedAt time.Time `json:"joined_at"`
}

// TeamDTO represents a team with its leader and members
type TeamDTO struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Leader  *StaffDTO       `json:"leader,omitempty"`
	Members []TeamMemberDTO `json:"members"`
}

// LoginRequest is the body of a login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateStaffRequest is the body of an admin staff registration
type CreateStaffRequest struct {
	Name     string           `json:"name" binding:"required"`
	Email    string           `json:"email" binding:"required,email"`
	Password string           `json:"password" binding:"required"`
	Role     models.StaffRole `json:"role"`
}

// ToStaffDTO converts a Staff model to StaffDTO
func ToStaffDTO(staff models.Staff) StaffDTO {
	return StaffDTO{
		ID:    staff.ID,
		Name:  staff.Name,
		Email: staff.Email,
		Role:  staff.Role,
	}
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team models.Team) TeamDTO {
	dto := TeamDTO{
		ID:      team.ID,
		Name:    team.Name,
		Members: make([]TeamMemberDTO, 0, len(team.Members)),
	}

	// Include leader if preloaded
	if team.Leader != nil {
		leader := ToStaffDTO(*team.Leader)
		dto.Leader = &leader
	}

	for _, member := range team.Members {
		if member.Staff.ID == uuid.Nil {
			continue
		}
		dto.Members = append(dto.Members, TeamMemberDTO{
			Staff:    ToStaffDTO(member.Staff),
			JoinedAt: member.JoinedAt,
		})
	}

	return dto
}
