package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/services"
	"github.com/yukikurage/taskflow/internal/utils"
)

// CreateTaskRequest is the body of a task creation request
type CreateTaskRequest struct {
	Title            string                `json:"title" binding:"required"`
	Description      string                `json:"description"`
	AllocationMode   models.AllocationMode `json:"allocation_mode"`
	AssignedStaffIDs []uuid.UUID           `json:"assigned_staff_ids"`
	AssignedTeamIDs  []uuid.UUID           `json:"assigned_team_ids"`
	Status           models.TaskStatus     `json:"status"`
	Priority         models.TaskPriority   `json:"priority"`
	DueDate          *time.Time            `json:"due_date"`
	StartDate        *time.Time            `json:"start_date"`
	IsRepeated       bool                  `json:"is_repeated"`
	RepeatConfig     map[string]any        `json:"repeat_config"`
	SupportFiles     []string              `json:"support_files"`
}

// ToInput converts the request into service input
func (r CreateTaskRequest) ToInput(creatorID uuid.UUID) services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:          r.Title,
		Description:    r.Description,
		AllocationMode: r.AllocationMode,
		StaffIDs:       r.AssignedStaffIDs,
		TeamIDs:        r.AssignedTeamIDs,
		Status:         r.Status,
		Priority:       r.Priority,
		DueDate:        r.DueDate,
		StartDate:      r.StartDate,
		IsRepeated:     r.IsRepeated,
		RepeatConfig:   r.RepeatConfig,
		SupportFiles:   r.SupportFiles,
		CreatorID:      creatorID,
	}
}

// UpdateTaskRequest is the body of a partial task update
type UpdateTaskRequest struct {
	Title            *string                `json:"title"`
	Description      *string                `json:"description"`
	Status           *models.TaskStatus     `json:"status"`
	Priority         *models.TaskPriority   `json:"priority"`
	AllocationMode   *models.AllocationMode `json:"allocation_mode"`
	AssignedStaffIDs *[]uuid.UUID           `json:"assigned_staff_ids"`
	AssignedTeamIDs  *[]uuid.UUID           `json:"assigned_team_ids"`
	DueDate          *time.Time             `json:"due_date"`
	ClearDueDate     bool                   `json:"clear_due_date"`
	StartDate        *time.Time             `json:"start_date"`
	ClearStartDate   bool                   `json:"clear_start_date"`
	IsRepeated       *bool                  `json:"is_repeated"`
	RepeatConfig     map[string]any         `json:"repeat_config"`
	SupportFiles     *[]string              `json:"support_files"`
	DelegateeNotes   *string                `json:"delegatee_notes"`
}

// ToInput converts the request into service input
func (r UpdateTaskRequest) ToInput(actorID uuid.UUID) services.UpdateTaskInput {
	return services.UpdateTaskInput{
		Title:          r.Title,
		Description:    r.Description,
		Status:         r.Status,
		Priority:       r.Priority,
		AllocationMode: r.AllocationMode,
		StaffIDs:       r.AssignedStaffIDs,
		TeamIDs:        r.AssignedTeamIDs,
		DueDate:        r.DueDate,
		ClearDueDate:   r.ClearDueDate,
		StartDate:      r.StartDate,
		ClearStartDate: r.ClearStartDate,
		IsRepeated:     r.IsRepeated,
		RepeatConfig:   r.RepeatConfig,
		SupportFiles:   r.SupportFiles,
		DelegateeNotes: r.DelegateeNotes,
		ActorID:        actorID,
	}
}

// TaskDTO represents a stored task row in API responses
type TaskDTO struct {
	ID               uuid.UUID             `json:"id"`
	TaskNo           string                `json:"task_no"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	AllocationMode   models.AllocationMode `json:"allocation_mode"`
	AssignedStaffIDs []uuid.UUID           `json:"assigned_staff_ids"`
	AssignedTeamIDs  []uuid.UUID           `json:"assigned_team_ids"`
	Status           models.TaskStatus     `json:"status"`
	Priority         models.TaskPriority   `json:"priority"`
	DueDate          *time.Time            `json:"due_date"`
	StartDate        *time.Time            `json:"start_date"`
	ParentTaskID     *uuid.UUID            `json:"parent_task_id"`
	CreatedBy        uuid.UUID             `json:"created_by"`
	UpdatedBy        *uuid.UUID            `json:"updated_by"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// CreateTaskResponse lists every row produced by one creation request
type CreateTaskResponse struct {
	Tasks       []TaskDTO `json:"tasks"`
	TaskNumbers []string  `json:"task_numbers"`
}

// UpdateTaskResponse reports the outcome of an update
type UpdateTaskResponse struct {
	Task TaskDTO `json:"task"`
	// PendingVerification is set when the update submitted delegated work
	// for verification instead of changing the task
	PendingVerification bool `json:"pending_verification"`
}

// DeleteTaskResponse lists the deleted task numbers
type DeleteTaskResponse struct {
	Deleted []string `json:"deleted"`
}

// TaskListResponse represents a paginated list of task views
type TaskListResponse struct {
	Tasks      []services.TaskView      `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// GenerateTasksRequest is the body of a draft generation request
type GenerateTasksRequest struct {
	Text string `json:"text" binding:"required"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:               task.ID,
		TaskNo:           task.TaskNo,
		Title:            task.Title,
		Description:      task.Description,
		AllocationMode:   task.AllocationMode,
		AssignedStaffIDs: nonNilIDs(task.AssignedStaffIDs),
		AssignedTeamIDs:  nonNilIDs(task.AssignedTeamIDs),
		Status:           task.Status,
		Priority:         task.Priority,
		DueDate:          task.DueDate,
		StartDate:        task.StartDate,
		ParentTaskID:     task.ParentTaskID,
		CreatedBy:        task.CreatedBy,
		UpdatedBy:        task.UpdatedBy,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}
}

// ToCreateTaskResponse converts a creation result to CreateTaskResponse
func ToCreateTaskResponse(result *services.CreateTaskResult) CreateTaskResponse {
	tasks := make([]TaskDTO, len(result.Tasks))
	for i, task := range result.Tasks {
		tasks[i] = ToTaskDTO(task)
	}
	return CreateTaskResponse{
		Tasks:       tasks,
		TaskNumbers: result.TaskNumbers(),
	}
}

// ToTaskListResponse converts one page of views to TaskListResponse
func ToTaskListResponse(views []services.TaskView, params utils.PaginationParams, total int64) TaskListResponse {
	if views == nil {
		views = []services.TaskView{}
	}
	return TaskListResponse{
		Tasks:      views,
		Pagination: params.Response(total),
	}
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
