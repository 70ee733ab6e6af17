package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/utils"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a task and assigns it the next server-generated task number
	Create(ctx context.Context, task *models.Task) error

	// RenameTaskNo overwrites the task number of an existing task
	RenameTaskNo(ctx context.Context, taskID uuid.UUID, taskNo string) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*models.Task, error)

	// ListDetailed returns every task, newest first, with its assignment,
	// team, delegation and reschedule relations loaded in ascending order
	ListDetailed(ctx context.Context) ([]models.Task, error)

	// FindChildren returns the clones whose parent is parentID
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]models.Task, error)

	// Update saves every column of a task
	Update(ctx context.Context, task *models.Task) error

	// SetAssignedStaffIDs writes the resolved direct-assignee list back onto a task
	SetAssignedStaffIDs(ctx context.Context, taskID uuid.UUID, staffIDs []uuid.UUID) error

	// Delete soft deletes the given tasks and their assignment rows in one transaction
	Delete(ctx context.Context, ids []uuid.UUID) error

	// AssignStaff inserts one assignment row per staff member
	AssignStaff(ctx context.Context, taskID uuid.UUID, staffIDs []uuid.UUID) error

	// ReplaceAssignments deletes all assignment rows of a task and inserts the new set
	ReplaceAssignments(ctx context.Context, taskID uuid.UUID, staffIDs []uuid.UUID) error

	// AssignTeams inserts one team assignment row per team
	AssignTeams(ctx context.Context, taskID uuid.UUID, teamIDs []uuid.UUID) error

	// ReplaceTeamAssignments deletes all team assignment rows of a task and inserts the new set
	ReplaceTeamAssignments(ctx context.Context, taskID uuid.UUID, teamIDs []uuid.UUID) error
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// List returns all teams with leader and members
	List(ctx context.Context) ([]models.Team, error)

	// FindByIDs returns the given teams with their leader loaded
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error)

	// FindMembers returns the memberships of the given teams with staff loaded
	FindMembers(ctx context.Context, teamIDs []uuid.UUID) ([]models.TeamMember, error)
}

// StaffRepository defines the interface for staff data access
type StaffRepository interface {
	// Create creates a new staff member
	Create(ctx context.Context, staff *models.Staff) error

	// FindByID finds a staff member by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.Staff, error)

	// FindByIDs returns the staff records for ids, in the order of ids
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Staff, error)

	// FindByEmail finds a staff member by email
	FindByEmail(ctx context.Context, email string) (*models.Staff, error)

	// ListByRole lists all staff holding a role
	ListByRole(ctx context.Context, role models.StaffRole) ([]models.Staff, error)
}

// DelegationRepository defines the interface for delegation data access.
// Every transition method is atomic.
type DelegationRepository interface {
	// Create records a new hand-off
	Create(ctx context.Context, delegation *models.TaskDelegation) error

	// FindByID finds a delegation with both parties loaded
	FindByID(ctx context.Context, id uuid.UUID) (*models.TaskDelegation, error)

	// FindActiveForDelegatee finds the active delegation of a task handed to staffID
	FindActiveForDelegatee(ctx context.Context, taskID, staffID uuid.UUID) (*models.TaskDelegation, error)

	// MarkCompleted moves an active delegation to completed
	MarkCompleted(ctx context.Context, id uuid.UUID, notes *string, at time.Time) error

	// MarkVerified moves a completed delegation to verified and completes its task
	MarkVerified(ctx context.Context, delegation *models.TaskDelegation, at time.Time) error

	// Reopen moves a completed delegation back to active and puts its task in progress
	Reopen(ctx context.Context, delegation *models.TaskDelegation) error
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// Create inserts a notification
	Create(ctx context.Context, notification *models.Notification) error

	// ListForUser lists notifications for a staff member, newest first
	ListForUser(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.Notification, int64, error)

	// MarkViewed flags a notification of userID as viewed
	MarkViewed(ctx context.Context, id, userID uuid.UUID) error
}
