package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts the task; an empty TaskNo is filled from the task sequence
// inside the same transaction.
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if task.TaskNo == "" {
			no, err := nextTaskNumber(tx)
			if err != nil {
				return err
			}
			task.TaskNo = no
		}
		return tx.Create(task).Error
	})
}

func nextTaskNumber(tx *gorm.DB) (string, error) {
	seq := models.TaskSequence{Name: constants.TaskSequenceName}
	if err := tx.Where(models.TaskSequence{Name: constants.TaskSequenceName}).
		Attrs(models.TaskSequence{Value: constants.FirstTaskNumber - 1}).
		FirstOrCreate(&seq).Error; err != nil {
		return "", fmt.Errorf("load task sequence: %w", err)
	}

	if err := tx.Model(&seq).Update("value", gorm.Expr("value + 1")).Error; err != nil {
		return "", fmt.Errorf("advance task sequence: %w", err)
	}

	if err := tx.Where("name = ?", constants.TaskSequenceName).First(&seq).Error; err != nil {
		return "", fmt.Errorf("read task sequence: %w", err)
	}

	return fmt.Sprintf("%s%d", constants.TaskNumberPrefix, seq.Value), nil
}

// RenameTaskNo overwrites the task number of an existing task
func (r *GormTaskRepository) RenameTaskNo(ctx context.Context, taskID uuid.UUID, taskNo string) error {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", taskID).
		Update("task_no", taskNo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

func orderedBy(order string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}
}

// ListDetailed returns every task, newest first, with relations sorted ascending
func (r *GormTaskRepository) ListDetailed(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Preload("Assignments", orderedBy("assigned_at ASC")).
		Preload("Assignments.Staff").
		Preload("TeamAssignments", orderedBy("created_at ASC")).
		Preload("Delegations", orderedBy("created_at ASC")).
		Preload("Delegations.FromStaff").
		Preload("Delegations.ToStaff").
		Preload("Reschedules", orderedBy("created_at ASC")).
		Order("tasks.created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindChildren returns the clones whose parent is parentID
func (r *GormTaskRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]models.Task, error) {
	var children []models.Task
	if err := r.db.WithContext(ctx).
		Where("parent_task_id = ?", parentID).
		Order("task_no ASC").
		Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// SetAssignedStaffIDs writes the resolved direct-assignee list back onto a task
func (r *GormTaskRepository) SetAssignedStaffIDs(ctx context.Context, taskID uuid.UUID, staffIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", taskID).
		Update("assigned_staff_ids", staffIDSlice(staffIDs)).Error
}

// Delete soft deletes tasks together with their assignment rows
func (r *GormTaskRepository) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskTeamAssignment{}).Error; err != nil {
			return err
		}

		res := tx.Where("id IN ?", ids).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("deleted %d of %d tasks", res.RowsAffected, len(ids))
		}
		return nil
	})
}

// AssignStaff inserts one assignment row per staff member
func (r *GormTaskRepository) AssignStaff(ctx context.Context, taskID uuid.UUID, staffIDs []uuid.UUID) error {
	if len(staffIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(buildAssignments(taskID, staffIDs)).Error
}

// ReplaceAssignments deletes all assignment rows of a task and inserts the new set
func (r *GormTaskRepository) ReplaceAssignments(ctx context.Context, taskID uuid.UUID, staffIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if len(staffIDs) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).Create(buildAssignments(taskID, staffIDs)).Error
	})
}

// AssignTeams inserts one team assignment row per team
func (r *GormTaskRepository) AssignTeams(ctx context.Context, taskID uuid.UUID, teamIDs []uuid.UUID) error {
	if len(teamIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(buildTeamAssignments(taskID, teamIDs)).Error
}

// ReplaceTeamAssignments deletes all team assignment rows of a task and inserts the new set
func (r *GormTaskRepository) ReplaceTeamAssignments(ctx context.Context, taskID uuid.UUID, teamIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskTeamAssignment{}).Error; err != nil {
			return err
		}
		if len(teamIDs) == 0 {
			return nil
		}
		return tx.Create(buildTeamAssignments(taskID, teamIDs)).Error
	})
}

func buildAssignments(taskID uuid.UUID, staffIDs []uuid.UUID) []models.TaskAssignment {
	now := time.Now()
	assignments := make([]models.TaskAssignment, len(staffIDs))
	for i, staffID := range staffIDs {
		assignments[i] = models.TaskAssignment{
			TaskID:     taskID,
			StaffID:    staffID,
			AssignedAt: now,
		}
	}
	return assignments
}

func buildTeamAssignments(taskID uuid.UUID, teamIDs []uuid.UUID) []models.TaskTeamAssignment {
	rows := make([]models.TaskTeamAssignment, len(teamIDs))
	for i, teamID := range teamIDs {
		rows[i] = models.TaskTeamAssignment{
			TaskID: taskID,
			TeamID: teamID,
		}
	}
	return rows
}

func staffIDSlice(ids []uuid.UUID) datatypes.JSONSlice[uuid.UUID] {
	if ids == nil {
		return datatypes.JSONSlice[uuid.UUID]{}
	}
	return datatypes.JSONSlice[uuid.UUID](ids)
}
