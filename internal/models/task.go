package models

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "backlog"
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// maxStatusLength matches the width of the status column
const maxStatusLength = 20

var statusMu sync.RWMutex

var taskStatuses = map[TaskStatus]struct{}{
	TaskStatusBacklog:    {},
	TaskStatusTodo:       {},
	TaskStatusInProgress: {},
	TaskStatusCompleted:  {},
}

// RegisterTaskStatuses adds workflow statuses beyond the built-in four,
// such as "on_hold" or "review". Names are lowercased and trimmed.
func RegisterTaskStatuses(names ...string) error {
	statusMu.Lock()
	defer statusMu.Unlock()
	for _, name := range names {
		status := TaskStatus(strings.ToLower(strings.TrimSpace(name)))
		if status == "" || len(status) > maxStatusLength || strings.ContainsAny(string(status), " \t") {
			return fmt.Errorf("invalid task status %q", name)
		}
		taskStatuses[status] = struct{}{}
	}
	return nil
}

// Valid reports whether the status is built in or registered
func (s TaskStatus) Valid() bool {
	statusMu.RLock()
	defer statusMu.RUnlock()
	_, ok := taskStatuses[s]
	return ok
}

type AllocationMode string

const (
	AllocationIndividual AllocationMode = "individual"
	AllocationTeam       AllocationMode = "team"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

type Task struct {
	ID               uuid.UUID                      `gorm:"type:varchar(36);primarykey" json:"id"`
	TaskNo           string                         `gorm:"type:varchar(50);uniqueIndex;not null" json:"task_no"`
	Title            string                         `gorm:"not null" json:"title"`
	Description      string                         `gorm:"type:text" json:"description"`
	AllocationMode   AllocationMode                 `gorm:"type:varchar(20);not null;default:'individual'" json:"allocation_mode"`
	AssignedStaffIDs datatypes.JSONSlice[uuid.UUID] `gorm:"column:assigned_staff_ids" json:"assigned_staff_ids"`
	AssignedTeamIDs  datatypes.JSONSlice[uuid.UUID] `gorm:"column:assigned_team_ids" json:"assigned_team_ids"`
	Status           TaskStatus                     `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	Priority         TaskPriority                   `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	DueDate          *time.Time                     `json:"due_date"`
	StartDate        *time.Time                     `json:"start_date"`
	IsRepeated       bool                           `gorm:"not null;default:false" json:"is_repeated"`
	RepeatConfig     datatypes.JSONMap              `json:"repeat_config"`
	SupportFiles     datatypes.JSONSlice[string]    `json:"support_files"`
	ParentTaskID     *uuid.UUID                     `gorm:"type:varchar(36);index" json:"parent_task_id"`
	CreatedBy        uuid.UUID                      `gorm:"type:varchar(36);not null" json:"created_by"`
	UpdatedBy        *uuid.UUID                     `gorm:"type:varchar(36)" json:"updated_by"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt                 `gorm:"index" json:"-"`

	// Relations
	Assignments     []TaskAssignment     `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	TeamAssignments []TaskTeamAssignment `gorm:"foreignKey:TaskID" json:"team_assignments,omitempty"`
	Delegations     []TaskDelegation     `gorm:"foreignKey:TaskID" json:"delegations,omitempty"`
	Reschedules     []TaskReschedule     `gorm:"foreignKey:TaskID" json:"reschedules,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TaskSequence backs the server-generated task numbers.
type TaskSequence struct {
	Name  string `gorm:"type:varchar(50);primarykey"`
	Value int64  `gorm:"not null"`
}

func (TaskSequence) TableName() string {
	return "task_sequences"
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
