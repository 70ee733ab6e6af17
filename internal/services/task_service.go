package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/notify"
	"github.com/yukikurage/taskflow/internal/repository"
	"github.com/yukikurage/taskflow/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleEmpty             = errors.New("title cannot be empty")
	ErrNoTargets              = errors.New("at least one assignee is required for the allocation mode")
	ErrInvalidAllocationMode  = errors.New("allocation mode must be individual or team")
	ErrStaffIDsInTeamMode     = errors.New("staff_ids cannot be set on a team allocation; change team_ids instead")
	ErrInvalidStatus          = errors.New("invalid task status")
	ErrInvalidPriority        = errors.New("invalid task priority")
	ErrDeleteCancelled        = errors.New("delete cancelled")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService resolves task creation into one or many task rows and applies
// updates and deletes.
type TaskService struct {
	taskRepo    repository.TaskRepository
	teamRepo    repository.TeamRepository
	delegations *DelegationService
	aiService   *AIService
}

// NewTaskService creates a new TaskService. aiService may be nil.
func NewTaskService(taskRepo repository.TaskRepository, teamRepo repository.TeamRepository, delegations *DelegationService, aiService *AIService) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		teamRepo:    teamRepo,
		delegations: delegations,
		aiService:   aiService,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title          string
	Description    string
	AllocationMode models.AllocationMode
	StaffIDs       []uuid.UUID
	TeamIDs        []uuid.UUID
	Status         models.TaskStatus
	Priority       models.TaskPriority
	DueDate        *time.Time
	StartDate      *time.Time
	IsRepeated     bool
	RepeatConfig   map[string]any
	SupportFiles   []string
	CreatorID      uuid.UUID
}

// CreateTaskResult holds the created rows in target order and the
// notifications the caller should dispatch.
type CreateTaskResult struct {
	Tasks         []models.Task
	Notifications []notify.Message
}

// TaskNumbers returns the task numbers of the created rows
func (r *CreateTaskResult) TaskNumbers() []string {
	numbers := make([]string, len(r.Tasks))
	for i, t := range r.Tasks {
		numbers[i] = t.TaskNo
	}
	return numbers
}

// normalize fills defaults and validates input before any write
func (in *CreateTaskInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrTitleRequired
	}

	if in.AllocationMode == "" {
		in.AllocationMode = models.AllocationIndividual
	}
	if in.Status == "" {
		in.Status = models.TaskStatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !validAllocationMode(in.AllocationMode) {
		return ErrInvalidAllocationMode
	}
	if !in.Status.Valid() {
		return ErrInvalidStatus
	}
	if !validPriority(in.Priority) {
		return ErrInvalidPriority
	}

	in.StaffIDs = uniqueIDs(in.StaffIDs)
	in.TeamIDs = uniqueIDs(in.TeamIDs)
	if len(in.targets()) == 0 {
		return ErrNoTargets
	}

	in.DueDate = utils.AdjustForWeekend(in.DueDate)
	in.StartDate = utils.AdjustForWeekend(in.StartDate)
	return nil
}

// targets are the staff or teams the request fans out over
func (in *CreateTaskInput) targets() []uuid.UUID {
	if in.AllocationMode == models.AllocationTeam {
		return in.TeamIDs
	}
	return in.StaffIDs
}

func (in *CreateTaskInput) newTask() *models.Task {
	return &models.Task{
		Title:          in.Title,
		Description:    in.Description,
		AllocationMode: in.AllocationMode,
		Status:         in.Status,
		Priority:       in.Priority,
		DueDate:        in.DueDate,
		StartDate:      in.StartDate,
		IsRepeated:     in.IsRepeated,
		RepeatConfig:   cloneJSONMap(in.RepeatConfig),
		SupportFiles:   append([]string{}, in.SupportFiles...),
		CreatedBy:      in.CreatorID,
	}
}

// Placeholders returns the optimistic views of the rows CreateTask will
// produce, one per target.
func (in CreateTaskInput) Placeholders(now time.Time) []TaskView {
	if err := in.normalize(); err != nil {
		return nil
	}

	targets := in.targets()
	if len(targets) > 1 {
		views := make([]TaskView, len(targets))
		for i, target := range targets {
			views[i] = in.placeholder(now, []uuid.UUID{target})
		}
		return views
	}
	return []TaskView{in.placeholder(now, targets)}
}

func (in *CreateTaskInput) placeholder(now time.Time, targets []uuid.UUID) TaskView {
	view := newTaskView(in.newTask())
	view.ID = uuid.New()
	view.CreatedAt = now
	view.UpdatedAt = now
	view.Optimistic = true
	if in.AllocationMode == models.AllocationTeam {
		view.AssignedTeamIDs = append([]uuid.UUID{}, targets...)
	} else {
		view.AssignedStaffIDs = append([]uuid.UUID{}, targets...)
		view.AssignedStaff = make([]StaffSummary, len(targets))
		for i, id := range targets {
			view.AssignedStaff[i] = StaffSummary{ID: id}
		}
	}
	return view
}

// CreateTask creates one task row per target when the request targets more
// than one staff member or team, else a single row. Clones after the first
// point at it through ParentTaskID and are renamed to base.i.
//
// A failing task row insert stops the loop. Rows committed by earlier
// iterations stay and are returned alongside the error.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*CreateTaskResult, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	result := &CreateTaskResult{}
	targets := input.targets()

	var err error
	if len(targets) > 1 {
		err = s.createClones(ctx, &input, targets, result)
	} else {
		err = s.createSingle(ctx, &input, result)
	}

	if err != nil {
		if len(result.Tasks) == 0 {
			return nil, err
		}
		return result, err
	}
	return result, nil
}

func (s *TaskService) createClones(ctx context.Context, input *CreateTaskInput, targets []uuid.UUID, result *CreateTaskResult) error {
	var (
		baseNo   string
		parentID uuid.UUID
	)

	for i, target := range targets {
		task := input.newTask()
		if input.AllocationMode == models.AllocationTeam {
			task.AssignedTeamIDs = []uuid.UUID{target}
		} else {
			task.AssignedStaffIDs = []uuid.UUID{target}
		}
		if i > 0 {
			parent := parentID
			task.ParentTaskID = &parent
		}

		if err := s.taskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task %d of %d: %w", i+1, len(targets), err)
		}

		if i == 0 {
			baseNo = task.TaskNo
			parentID = task.ID
		} else {
			cloneNo := fmt.Sprintf(constants.CloneNumberPattern, baseNo, i)
			if err := s.taskRepo.RenameTaskNo(ctx, task.ID, cloneNo); err != nil {
				result.Tasks = append(result.Tasks, *task)
				return fmt.Errorf("failed to number task %d of %d: %w", i+1, len(targets), err)
			}
			task.TaskNo = cloneNo
		}

		result.Notifications = append(result.Notifications, s.wireAssignees(ctx, task, input.CreatorID)...)
		result.Tasks = append(result.Tasks, *task)
	}

	return nil
}

func (s *TaskService) createSingle(ctx context.Context, input *CreateTaskInput, result *CreateTaskResult) error {
	task := input.newTask()
	if input.AllocationMode == models.AllocationTeam {
		task.AssignedTeamIDs = input.TeamIDs
	} else {
		task.AssignedStaffIDs = input.StaffIDs
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	result.Notifications = append(result.Notifications, s.wireAssignees(ctx, task, input.CreatorID)...)
	result.Tasks = append(result.Tasks, *task)
	return nil
}

// wireAssignees writes the assignment rows of a freshly created task. Team
// tasks get their team rows first and the expanded staff written back onto
// the task. Failures are logged and leave the task in place.
func (s *TaskService) wireAssignees(ctx context.Context, task *models.Task, actorID uuid.UUID) []notify.Message {
	staff := []uuid.UUID(task.AssignedStaffIDs)

	if task.AllocationMode == models.AllocationTeam {
		if err := s.taskRepo.AssignTeams(ctx, task.ID, task.AssignedTeamIDs); err != nil {
			logSecondaryFailure(err, "failed to write team assignments", task)
		}

		expanded, err := ExpandTeams(ctx, s.teamRepo, task.AssignedTeamIDs)
		if err != nil {
			logSecondaryFailure(err, "failed to expand teams", task)
			return nil
		}
		staff = staffIDs(expanded)

		if err := s.taskRepo.SetAssignedStaffIDs(ctx, task.ID, staff); err != nil {
			logSecondaryFailure(err, "failed to write back team staff", task)
		} else {
			task.AssignedStaffIDs = staff
		}
	}

	if err := s.taskRepo.AssignStaff(ctx, task.ID, staff); err != nil {
		logSecondaryFailure(err, "failed to write assignments", task)
		return nil
	}

	return assignmentMessages(task, staff, actorID)
}

// UpdateTaskInput represents a partial update of a task. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AllocationMode *models.AllocationMode
	StaffIDs       *[]uuid.UUID
	TeamIDs        *[]uuid.UUID
	DueDate        *time.Time
	ClearDueDate   bool
	StartDate      *time.Time
	ClearStartDate bool
	IsRepeated     *bool
	RepeatConfig   map[string]any
	SupportFiles   *[]string
	// DelegateeNotes accompany a completion by the delegatee
	DelegateeNotes *string
	ActorID        uuid.UUID
}

// ApplyTo patches a cached view with the fields of the update
func (in UpdateTaskInput) ApplyTo(view *TaskView) {
	if in.Title != nil {
		view.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		view.Description = *in.Description
	}
	if in.Status != nil {
		view.Status = *in.Status
	}
	if in.Priority != nil {
		view.Priority = *in.Priority
	}
	if in.AllocationMode != nil {
		view.AllocationMode = *in.AllocationMode
	}
	if in.StaffIDs != nil && view.AllocationMode != models.AllocationTeam {
		view.AssignedStaffIDs = uniqueIDs(*in.StaffIDs)
	}
	if in.TeamIDs != nil {
		view.AssignedTeamIDs = uniqueIDs(*in.TeamIDs)
	}
	if in.ClearDueDate {
		view.DueDate = nil
	} else if in.DueDate != nil {
		view.DueDate = utils.AdjustForWeekend(in.DueDate)
	}
	if in.ClearStartDate {
		view.StartDate = nil
	} else if in.StartDate != nil {
		view.StartDate = utils.AdjustForWeekend(in.StartDate)
	}
	if in.IsRepeated != nil {
		view.IsRepeated = *in.IsRepeated
	}
	if in.RepeatConfig != nil {
		view.RepeatConfig = cloneJSONMap(in.RepeatConfig)
	}
	if in.SupportFiles != nil {
		view.SupportFiles = append([]string{}, (*in.SupportFiles)...)
	}
	actor := in.ActorID
	view.UpdatedBy = &actor
	view.Optimistic = true
}

func (in *UpdateTaskInput) validate() error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return ErrTitleEmpty
	}
	if in.Status != nil && !in.Status.Valid() {
		return ErrInvalidStatus
	}
	if in.Priority != nil && !validPriority(*in.Priority) {
		return ErrInvalidPriority
	}
	if in.AllocationMode != nil && !validAllocationMode(*in.AllocationMode) {
		return ErrInvalidAllocationMode
	}
	return nil
}

// UpdateTaskResult holds the outcome of UpdateTask
type UpdateTaskResult struct {
	Task *models.Task
	// Intercepted is set when the update was a delegatee completing their
	// delegation; the task row was not written.
	Intercepted   bool
	Notifications []notify.Message
}

// UpdateTask applies a partial update. A status update to completed by the
// delegatee of an active delegation completes the delegation instead and
// writes nothing else.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uuid.UUID, input UpdateTaskInput) (*UpdateTaskResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Status != nil && *input.Status == models.TaskStatusCompleted && s.delegations != nil {
		handled, msgs, err := s.delegations.InterceptCompletion(ctx, task, input.ActorID, input.DelegateeNotes)
		if err != nil {
			return nil, err
		}
		if handled {
			return &UpdateTaskResult{Task: task, Intercepted: true, Notifications: msgs}, nil
		}
	}

	previousStaff := append([]uuid.UUID{}, task.AssignedStaffIDs...)
	previousMode := task.AllocationMode

	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.AllocationMode != nil {
		task.AllocationMode = *input.AllocationMode
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = utils.AdjustForWeekend(input.DueDate)
	}
	if input.ClearStartDate {
		task.StartDate = nil
	} else if input.StartDate != nil {
		task.StartDate = utils.AdjustForWeekend(input.StartDate)
	}
	if input.IsRepeated != nil {
		task.IsRepeated = *input.IsRepeated
	}
	if input.RepeatConfig != nil {
		task.RepeatConfig = cloneJSONMap(input.RepeatConfig)
	}
	if input.SupportFiles != nil {
		task.SupportFiles = append([]string{}, (*input.SupportFiles)...)
	}

	teamsChanged := input.TeamIDs != nil
	if teamsChanged {
		task.AssignedTeamIDs = uniqueIDs(*input.TeamIDs)
	}

	staffChanged := false
	switch task.AllocationMode {
	case models.AllocationIndividual:
		if input.StaffIDs != nil {
			task.AssignedStaffIDs = uniqueIDs(*input.StaffIDs)
			staffChanged = true
		}
		if len(task.AssignedStaffIDs) == 0 {
			return nil, ErrNoTargets
		}
	case models.AllocationTeam:
		if input.StaffIDs != nil {
			return nil, ErrStaffIDsInTeamMode
		}
		if len(task.AssignedTeamIDs) == 0 {
			return nil, ErrNoTargets
		}
		if teamsChanged || previousMode != models.AllocationTeam {
			expanded, err := ExpandTeams(ctx, s.teamRepo, task.AssignedTeamIDs)
			if err != nil {
				logSecondaryFailure(err, "failed to expand teams", task)
			} else {
				task.AssignedStaffIDs = staffIDs(expanded)
				staffChanged = true
			}
		}
	}

	actor := input.ActorID
	task.UpdatedBy = &actor

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if teamsChanged {
		if err := s.taskRepo.ReplaceTeamAssignments(ctx, task.ID, task.AssignedTeamIDs); err != nil {
			logSecondaryFailure(err, "failed to replace team assignments", task)
		}
	}

	result := &UpdateTaskResult{Task: task}
	if staffChanged {
		if err := s.taskRepo.ReplaceAssignments(ctx, task.ID, task.AssignedStaffIDs); err != nil {
			logSecondaryFailure(err, "failed to replace assignments", task)
		} else {
			result.Notifications = assignmentMessages(task, newlyAdded(task.AssignedStaffIDs, previousStaff), input.ActorID)
		}
	}

	return result, nil
}

// Confirmer is asked before a delete cascades from a parent task to its
// clones. Returning false cancels the whole delete.
type Confirmer func(parent *models.Task, children []models.Task) bool

// CascadeDeclinedError reports a delete that was not confirmed
type CascadeDeclinedError struct {
	TaskNo   string
	Children []string
}

func (e *CascadeDeclinedError) Error() string {
	return fmt.Sprintf("deleting %s also deletes %s: %v", e.TaskNo, strings.Join(e.Children, ", "), ErrDeleteCancelled)
}

func (e *CascadeDeclinedError) Unwrap() error {
	return ErrDeleteCancelled
}

// DeleteTask deletes a task. A task that is the parent of clones is deleted
// together with them, but only when confirm agrees. Deleting a clone removes
// that row alone. Returns the deleted task numbers.
func (s *TaskService) DeleteTask(ctx context.Context, taskID uuid.UUID, confirm Confirmer) ([]string, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	ids := []uuid.UUID{task.ID}
	numbers := []string{task.TaskNo}

	if task.ParentTaskID == nil {
		children, err := s.taskRepo.FindChildren(ctx, task.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find clones: %w", err)
		}

		if len(children) > 0 {
			childNumbers := make([]string, len(children))
			for i, child := range children {
				childNumbers[i] = child.TaskNo
			}
			if confirm == nil || !confirm(task, children) {
				return nil, &CascadeDeclinedError{TaskNo: task.TaskNo, Children: childNumbers}
			}
			for _, child := range children {
				ids = append(ids, child.ID)
			}
			numbers = append(numbers, childNumbers...)
		}
	}

	if err := s.taskRepo.Delete(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	return numbers, nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text      string
	CreatorID uuid.UUID
}

// GenerateTasks uses AI to draft tasks from text. Drafts are not persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		aiTask.DueDate = utils.AdjustForWeekend(aiTask.DueDate)

		if !validPriority(aiTask.Priority) {
			aiTask.Priority = models.PriorityMedium
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func assignmentMessages(task *models.Task, recipients []uuid.UUID, actorID uuid.UUID) []notify.Message {
	taskID := task.ID
	msgs := make([]notify.Message, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient == actorID {
			continue
		}
		msgs = append(msgs, notify.Message{
			RecipientID: recipient,
			Type:        notify.TypeTaskAssigned,
			Title:       "New task assigned",
			Body:        fmt.Sprintf("%s: %s has been assigned to you", task.TaskNo, task.Title),
			ReferenceID: &taskID,
			Metadata: map[string]any{
				"task_no":  task.TaskNo,
				"priority": string(task.Priority),
			},
			SendEmail: true,
		})
	}
	return msgs
}

// newlyAdded returns the ids of current that are not in previous
func newlyAdded(current, previous []uuid.UUID) []uuid.UUID {
	known := make(map[uuid.UUID]struct{}, len(previous))
	for _, id := range previous {
		known[id] = struct{}{}
	}
	added := make([]uuid.UUID, 0, len(current))
	for _, id := range current {
		if _, ok := known[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}

func logSecondaryFailure(err error, msg string, task *models.Task) {
	log.Warn().Err(err).
		Str("task_id", task.ID.String()).
		Str("task_no", task.TaskNo).
		Msg(msg)
}

func validPriority(priority models.TaskPriority) bool {
	switch priority {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		return true
	}
	return false
}

func validAllocationMode(mode models.AllocationMode) bool {
	return mode == models.AllocationIndividual || mode == models.AllocationTeam
}
