package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/repository"
)

// StaffSummary is the public face of a staff member inside a task view
type StaffSummary struct {
	ID    uuid.UUID        `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Role  models.StaffRole `json:"role"`
}

// DelegationSummary is one delegation row of a task view
type DelegationSummary struct {
	ID             uuid.UUID               `json:"id"`
	From           StaffSummary            `json:"from"`
	To             StaffSummary            `json:"to"`
	Notes          string                  `json:"notes"`
	Status         models.DelegationStatus `json:"status"`
	CompletedAt    *time.Time              `json:"completed_by_delegatee_at"`
	VerifiedAt     *time.Time              `json:"verified_by_delegator_at"`
	DelegateeNotes *string                 `json:"delegatee_notes"`
	CreatedAt      time.Time               `json:"created_at"`
}

// DelegationLink is one hop of a delegation chain
type DelegationLink struct {
	From      StaffSummary `json:"from"`
	To        StaffSummary `json:"to"`
	Reason    string       `json:"reason"`
	Timestamp time.Time    `json:"timestamp"`
}

// RescheduleSummary is a reschedule request attached to a task view
type RescheduleSummary struct {
	ID               uuid.UUID               `json:"id"`
	RequestedBy      uuid.UUID               `json:"requested_by"`
	Reason           string                  `json:"reason"`
	OriginalDueDate  *time.Time              `json:"original_due_date"`
	RequestedDueDate time.Time               `json:"requested_due_date"`
	Status           models.RescheduleStatus `json:"status"`
	RespondedBy      *uuid.UUID              `json:"responded_by"`
	Response         string                  `json:"response"`
	CreatedAt        time.Time               `json:"created_at"`
}

// TaskView is the enriched, read-only shape of a task
type TaskView struct {
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
	IsRepeated       bool                  `json:"is_repeated"`
	RepeatConfig     map[string]any        `json:"repeat_config,omitempty"`
	SupportFiles     []string              `json:"support_files"`
	ParentTaskID     *uuid.UUID            `json:"parent_task_id"`
	CreatedBy        uuid.UUID             `json:"created_by"`
	UpdatedBy        *uuid.UUID            `json:"updated_by"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`

	AssignedStaff      []StaffSummary      `json:"assigned_staff"`
	OriginalAssignee   *StaffSummary       `json:"original_assignee"`
	Delegations        []DelegationSummary `json:"delegations"`
	DelegationChain    []DelegationLink    `json:"delegation_chain"`
	DelegationCount    int                 `json:"delegation_count"`
	HasDelegations     bool                `json:"has_delegations"`
	PendingReschedule  *RescheduleSummary  `json:"pending_reschedule"`
	ApprovedReschedule *RescheduleSummary  `json:"approved_reschedule"`

	// Optimistic marks a locally patched view not yet confirmed by the store
	Optimistic bool `json:"optimistic,omitempty"`
}

// Clone returns a deep copy of v
func (v TaskView) Clone() TaskView {
	c := v
	c.AssignedStaffIDs = slices.Clone(v.AssignedStaffIDs)
	c.AssignedTeamIDs = slices.Clone(v.AssignedTeamIDs)
	c.DueDate = cloneTime(v.DueDate)
	c.StartDate = cloneTime(v.StartDate)
	c.RepeatConfig = cloneJSONMap(v.RepeatConfig)
	c.SupportFiles = slices.Clone(v.SupportFiles)
	c.ParentTaskID = cloneID(v.ParentTaskID)
	c.UpdatedBy = cloneID(v.UpdatedBy)
	c.AssignedStaff = slices.Clone(v.AssignedStaff)
	if v.OriginalAssignee != nil {
		o := *v.OriginalAssignee
		c.OriginalAssignee = &o
	}
	if v.Delegations != nil {
		c.Delegations = make([]DelegationSummary, len(v.Delegations))
		for i, d := range v.Delegations {
			d.CompletedAt = cloneTime(d.CompletedAt)
			d.VerifiedAt = cloneTime(d.VerifiedAt)
			if d.DelegateeNotes != nil {
				n := *d.DelegateeNotes
				d.DelegateeNotes = &n
			}
			c.Delegations[i] = d
		}
	}
	c.DelegationChain = slices.Clone(v.DelegationChain)
	c.PendingReschedule = v.PendingReschedule.clone()
	c.ApprovedReschedule = v.ApprovedReschedule.clone()
	return c
}

func (r *RescheduleSummary) clone() *RescheduleSummary {
	if r == nil {
		return nil
	}
	c := *r
	c.OriginalDueDate = cloneTime(r.OriginalDueDate)
	c.RespondedBy = cloneID(r.RespondedBy)
	return &c
}

// TaskAggregator builds task views from the raw rows of the store
type TaskAggregator struct {
	taskRepo  repository.TaskRepository
	staffRepo repository.StaffRepository
	teamRepo  repository.TeamRepository
}

// NewTaskAggregator creates a new TaskAggregator
func NewTaskAggregator(taskRepo repository.TaskRepository, staffRepo repository.StaffRepository, teamRepo repository.TeamRepository) *TaskAggregator {
	return &TaskAggregator{
		taskRepo:  taskRepo,
		staffRepo: staffRepo,
		teamRepo:  teamRepo,
	}
}

// ListTasks returns every task as an enriched view, newest first
func (a *TaskAggregator) ListTasks(ctx context.Context) ([]TaskView, error) {
	tasks, err := a.taskRepo.ListDetailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	slices.SortStableFunc(tasks, func(x, y models.Task) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})

	// Tasks cloned for the same teams share one expansion
	expansions := make(map[string][]models.Staff)

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		view, err := a.buildView(ctx, &tasks[i], expansions)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (a *TaskAggregator) buildView(ctx context.Context, task *models.Task, expansions map[string][]models.Staff) (TaskView, error) {
	normalizeRelations(task)
	view := newTaskView(task)

	assigned := make([]models.Staff, 0, len(task.Assignments))
	for _, assignment := range task.Assignments {
		if assignment.Staff.ID != uuid.Nil {
			assigned = append(assigned, assignment.Staff)
		}
	}

	// Rows written before their assignment join existed still carry the ids
	resolvedFromIDs := false
	if len(assigned) == 0 && len(task.AssignedStaffIDs) > 0 {
		staff, err := a.staffRepo.FindByIDs(ctx, task.AssignedStaffIDs)
		if err != nil {
			return view, fmt.Errorf("failed to load assigned staff of %s: %w", task.TaskNo, err)
		}
		assigned = staff
		resolvedFromIDs = len(staff) > 0
	}

	if task.AllocationMode == models.AllocationTeam && len(task.AssignedTeamIDs) > 0 {
		key := teamKey(task.AssignedTeamIDs)
		expanded, ok := expansions[key]
		if !ok {
			var err error
			expanded, err = ExpandTeams(ctx, a.teamRepo, task.AssignedTeamIDs)
			if err != nil {
				return view, fmt.Errorf("failed to expand teams of %s: %w", task.TaskNo, err)
			}
			expansions[key] = expanded
		}
		assigned = appendUniqueStaff(assigned, expanded)
	}

	view.AssignedStaff = make([]StaffSummary, len(assigned))
	for i, s := range assigned {
		view.AssignedStaff[i] = summarizeStaff(s)
	}

	view.OriginalAssignee = originalAssignee(task)
	if view.OriginalAssignee == nil && resolvedFromIDs && len(view.AssignedStaff) > 0 {
		first := view.AssignedStaff[0]
		view.OriginalAssignee = &first
	}

	view.Delegations = make([]DelegationSummary, len(task.Delegations))
	view.DelegationChain = make([]DelegationLink, len(task.Delegations))
	for i, d := range task.Delegations {
		from := delegationParty(d.FromStaff, d.FromStaffID)
		to := delegationParty(d.ToStaff, d.ToStaffID)
		view.Delegations[i] = DelegationSummary{
			ID:             d.ID,
			From:           from,
			To:             to,
			Notes:          d.Notes,
			Status:         d.Status,
			CompletedAt:    d.CompletedByDelegateeAt,
			VerifiedAt:     d.VerifiedByDelegatorAt,
			DelegateeNotes: d.DelegateeNotes,
			CreatedAt:      d.CreatedAt,
		}
		view.DelegationChain[i] = DelegationLink{
			From:      from,
			To:        to,
			Reason:    d.Notes,
			Timestamp: d.CreatedAt,
		}
	}
	view.DelegationCount = len(view.DelegationChain)
	view.HasDelegations = view.DelegationCount > 0

	view.PendingReschedule = latestReschedule(task.Reschedules, models.ReschedulePending)
	view.ApprovedReschedule = latestReschedule(task.Reschedules, models.RescheduleApproved)

	return view, nil
}

// normalizeRelations sorts every loaded relation ascending by time so that
// all derivations below break ties the same way.
func normalizeRelations(task *models.Task) {
	position := make(map[uuid.UUID]int, len(task.AssignedStaffIDs))
	for i, id := range task.AssignedStaffIDs {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}
	rank := func(id uuid.UUID) int {
		if p, ok := position[id]; ok {
			return p
		}
		return len(position)
	}

	slices.SortStableFunc(task.Assignments, func(x, y models.TaskAssignment) int {
		if c := x.AssignedAt.Compare(y.AssignedAt); c != 0 {
			return c
		}
		return rank(x.StaffID) - rank(y.StaffID)
	})
	slices.SortStableFunc(task.Delegations, func(x, y models.TaskDelegation) int {
		return x.CreatedAt.Compare(y.CreatedAt)
	})
	slices.SortStableFunc(task.Reschedules, func(x, y models.TaskReschedule) int {
		return x.CreatedAt.Compare(y.CreatedAt)
	})
}

// originalAssignee is the delegator of the earliest delegation, else the
// earliest assignment. Expects normalized relations. Tasks without either
// fall back to the first staff resolved from assigned_staff_ids.
func originalAssignee(task *models.Task) *StaffSummary {
	if len(task.Delegations) > 0 {
		first := task.Delegations[0]
		s := delegationParty(first.FromStaff, first.FromStaffID)
		return &s
	}
	if len(task.Assignments) > 0 {
		first := task.Assignments[0]
		s := delegationParty(first.Staff, first.StaffID)
		return &s
	}
	return nil
}

// latestReschedule returns the most recent request with status. Expects
// requests in ascending creation order.
func latestReschedule(requests []models.TaskReschedule, status models.RescheduleStatus) *RescheduleSummary {
	for i := len(requests) - 1; i >= 0; i-- {
		r := requests[i]
		if r.Status != status {
			continue
		}
		return &RescheduleSummary{
			ID:               r.ID,
			RequestedBy:      r.StaffID,
			Reason:           r.Reason,
			OriginalDueDate:  r.OriginalDueDate,
			RequestedDueDate: r.RequestedDueDate,
			Status:           r.Status,
			RespondedBy:      r.AdminID,
			Response:         r.AdminResponse,
			CreatedAt:        r.CreatedAt,
		}
	}
	return nil
}

func newTaskView(task *models.Task) TaskView {
	return TaskView{
		ID:               task.ID,
		TaskNo:           task.TaskNo,
		Title:            task.Title,
		Description:      task.Description,
		AllocationMode:   task.AllocationMode,
		AssignedStaffIDs: slices.Clone([]uuid.UUID(task.AssignedStaffIDs)),
		AssignedTeamIDs:  slices.Clone([]uuid.UUID(task.AssignedTeamIDs)),
		Status:           task.Status,
		Priority:         task.Priority,
		DueDate:          task.DueDate,
		StartDate:        task.StartDate,
		IsRepeated:       task.IsRepeated,
		RepeatConfig:     cloneJSONMap(task.RepeatConfig),
		SupportFiles:     slices.Clone([]string(task.SupportFiles)),
		ParentTaskID:     task.ParentTaskID,
		CreatedBy:        task.CreatedBy,
		UpdatedBy:        task.UpdatedBy,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}
}

func summarizeStaff(s models.Staff) StaffSummary {
	return StaffSummary{
		ID:    s.ID,
		Name:  s.Name,
		Email: s.Email,
		Role:  s.Role,
	}
}

// delegationParty summarizes a loaded relation, falling back to the bare id
// when the staff record is gone.
func delegationParty(s models.Staff, id uuid.UUID) StaffSummary {
	if s.ID == uuid.Nil {
		return StaffSummary{ID: id}
	}
	return summarizeStaff(s)
}

func appendUniqueStaff(base []models.Staff, extra []models.Staff) []models.Staff {
	seen := make(map[uuid.UUID]struct{}, len(base)+len(extra))
	result := make([]models.Staff, 0, len(base)+len(extra))
	for _, list := range [][]models.Staff{base, extra} {
		for _, s := range list {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			result = append(result, s)
		}
	}
	return result
}

func teamKey(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneJSONMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneJSONValue(v)
	}
	return c
}

func cloneJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneJSONMap(val)
	case []any:
		c := make([]any, len(val))
		for i, item := range val {
			c[i] = cloneJSONValue(item)
		}
		return c
	default:
		return val
	}
}
