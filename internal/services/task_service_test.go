package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskflow/internal/database"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/notify"
	"github.com/yukikurage/taskflow/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

// TaskServiceTestSuite exercises task creation, updates, delegation and
// deletion against an in-memory store
type TaskServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	db          *gorm.DB
	taskRepo    repository.TaskRepository
	service     *TaskService
	delegations *DelegationService

	admin *models.Staff
	s1    *models.Staff
	s2    *models.Staff
	s3    *models.Staff
}

func (suite *TaskServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = newTestDB(suite.T())

	suite.taskRepo = repository.NewTaskRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)
	staffRepo := repository.NewStaffRepository(suite.db)
	suite.delegations = NewDelegationService(repository.NewDelegationRepository(suite.db), suite.taskRepo, staffRepo)
	suite.service = NewTaskService(suite.taskRepo, teamRepo, suite.delegations, nil)

	suite.admin = suite.createStaff("admin", models.RoleAdmin)
	suite.s1 = suite.createStaff("s1", models.RoleStaff)
	suite.s2 = suite.createStaff("s2", models.RoleStaff)
	suite.s3 = suite.createStaff("s3", models.RoleStaff)
}

func (suite *TaskServiceTestSuite) createStaff(name string, role models.StaffRole) *models.Staff {
	staff := &models.Staff{Name: name, Email: name + "@example.com", Role: role}
	suite.Require().NoError(suite.db.Create(staff).Error)
	return staff
}

func (suite *TaskServiceTestSuite) createTeam(name string, leader *models.Staff, members ...*models.Staff) *models.Team {
	team := &models.Team{Name: name, LeaderID: &leader.ID}
	suite.Require().NoError(suite.db.Omit(clause.Associations).Create(team).Error)

	joined := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	for i, m := range members {
		suite.Require().NoError(suite.db.Omit(clause.Associations).Create(&models.TeamMember{
			TeamID:   team.ID,
			StaffID:  m.ID,
			JoinedAt: joined.Add(time.Duration(i) * time.Hour),
		}).Error)
	}
	return team
}

func (suite *TaskServiceTestSuite) createFor(staff ...*models.Staff) *CreateTaskResult {
	ids := make([]uuid.UUID, len(staff))
	for i, s := range staff {
		ids[i] = s.ID
	}
	result, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:     "Quarterly audit",
		StaffIDs:  ids,
		CreatorID: suite.admin.ID,
	})
	suite.Require().NoError(err)
	return result
}

func (suite *TaskServiceTestSuite) assignmentCount(taskID uuid.UUID) int64 {
	var count int64
	suite.Require().NoError(suite.db.Model(&models.TaskAssignment{}).Where("task_id = ?", taskID).Count(&count).Error)
	return count
}

func (suite *TaskServiceTestSuite) taskCount() int64 {
	var count int64
	suite.Require().NoError(suite.db.Model(&models.Task{}).Count(&count).Error)
	return count
}

func recipients(msgs []notify.Message) []uuid.UUID {
	ids := make([]uuid.UUID, len(msgs))
	for i, m := range msgs {
		ids[i] = m.RecipientID
	}
	return ids
}

// One clone per staff member
func (suite *TaskServiceTestSuite) TestCreateTask_IndividualClones() {
	result := suite.createFor(suite.s1, suite.s2, suite.s3)

	suite.Require().Len(result.Tasks, 3)
	assert.Equal(suite.T(), []string{"T100", "T100.1", "T100.2"}, result.TaskNumbers())
	assert.Equal(suite.T(), int64(3), suite.taskCount())

	parent := result.Tasks[0]
	assert.Nil(suite.T(), parent.ParentTaskID)
	for i, task := range result.Tasks {
		assert.Equal(suite.T(), int64(1), suite.assignmentCount(task.ID), task.TaskNo)
		if i > 0 {
			suite.Require().NotNil(task.ParentTaskID)
			assert.Equal(suite.T(), parent.ID, *task.ParentTaskID)
		}

		stored, err := suite.taskRepo.FindByID(suite.ctx, task.ID)
		suite.Require().NoError(err)
		assert.Equal(suite.T(), task.TaskNo, stored.TaskNo)
	}

	assert.Equal(suite.T(), []uuid.UUID{suite.s1.ID, suite.s2.ID, suite.s3.ID}, recipients(result.Notifications))
	for _, msg := range result.Notifications {
		assert.Equal(suite.T(), notify.TypeTaskAssigned, msg.Type)
		assert.True(suite.T(), msg.SendEmail)
	}
}

func (suite *TaskServiceTestSuite) TestCreateTask_SingleTargetHasNoParent() {
	result := suite.createFor(suite.s1)

	suite.Require().Len(result.Tasks, 1)
	assert.Nil(suite.T(), result.Tasks[0].ParentTaskID)
	assert.Equal(suite.T(), "T100", result.Tasks[0].TaskNo)
	assert.Equal(suite.T(), int64(1), suite.assignmentCount(result.Tasks[0].ID))
}

func (suite *TaskServiceTestSuite) TestCreateTask_DuplicateTargetsCollapse() {
	result := suite.createFor(suite.s1, suite.s1)

	suite.Require().Len(result.Tasks, 1)
	assert.Nil(suite.T(), result.Tasks[0].ParentTaskID)
}

// A team resolves to its members and leader
func (suite *TaskServiceTestSuite) TestCreateTask_TeamExpansion() {
	team := suite.createTeam("TM1", suite.s3, suite.s1, suite.s2)

	result, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:          "Restock",
		AllocationMode: models.AllocationTeam,
		TeamIDs:        []uuid.UUID{team.ID},
		CreatorID:      suite.admin.ID,
	})
	suite.Require().NoError(err)
	suite.Require().Len(result.Tasks, 1)

	task := result.Tasks[0]
	expected := []uuid.UUID{suite.s1.ID, suite.s2.ID, suite.s3.ID}
	assert.Equal(suite.T(), expected, []uuid.UUID(task.AssignedStaffIDs))

	stored, err := suite.taskRepo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), expected, []uuid.UUID(stored.AssignedStaffIDs))
	assert.Equal(suite.T(), int64(3), suite.assignmentCount(task.ID))

	var teamRows int64
	suite.db.Model(&models.TaskTeamAssignment{}).Where("task_id = ?", task.ID).Count(&teamRows)
	assert.Equal(suite.T(), int64(1), teamRows)
}

func (suite *TaskServiceTestSuite) TestCreateTask_TeamClones() {
	north := suite.createTeam("North", suite.s1, suite.s2)
	south := suite.createTeam("South", suite.s3, suite.s2)

	result, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:          "Safety drill",
		AllocationMode: models.AllocationTeam,
		TeamIDs:        []uuid.UUID{north.ID, south.ID},
		CreatorID:      suite.admin.ID,
	})
	suite.Require().NoError(err)
	suite.Require().Len(result.Tasks, 2)

	assert.Equal(suite.T(), []string{"T100", "T100.1"}, result.TaskNumbers())
	assert.Equal(suite.T(), []uuid.UUID{north.ID}, []uuid.UUID(result.Tasks[0].AssignedTeamIDs))
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID, suite.s1.ID}, []uuid.UUID(result.Tasks[0].AssignedStaffIDs))
	assert.Equal(suite.T(), []uuid.UUID{south.ID}, []uuid.UUID(result.Tasks[1].AssignedTeamIDs))
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID, suite.s3.ID}, []uuid.UUID(result.Tasks[1].AssignedStaffIDs))
}

func (suite *TaskServiceTestSuite) TestCreateTask_Validation() {
	cases := []struct {
		name  string
		input CreateTaskInput
		err   error
	}{
		{"no title", CreateTaskInput{StaffIDs: []uuid.UUID{suite.s1.ID}}, ErrTitleRequired},
		{"no staff", CreateTaskInput{Title: "x"}, ErrNoTargets},
		{"only nil staff", CreateTaskInput{Title: "x", StaffIDs: []uuid.UUID{uuid.Nil}}, ErrNoTargets},
		{"team mode with staff only", CreateTaskInput{Title: "x", AllocationMode: models.AllocationTeam, StaffIDs: []uuid.UUID{suite.s1.ID}}, ErrNoTargets},
		{"bad mode", CreateTaskInput{Title: "x", AllocationMode: "pairs", StaffIDs: []uuid.UUID{suite.s1.ID}}, ErrInvalidAllocationMode},
		{"bad priority", CreateTaskInput{Title: "x", Priority: "asap", StaffIDs: []uuid.UUID{suite.s1.ID}}, ErrInvalidPriority},
	}

	for _, tc := range cases {
		result, err := suite.service.CreateTask(suite.ctx, tc.input)
		assert.ErrorIs(suite.T(), err, tc.err, tc.name)
		assert.Nil(suite.T(), result, tc.name)
	}
	assert.Zero(suite.T(), suite.taskCount())
}

func (suite *TaskServiceTestSuite) TestCreateTask_WeekendDates() {
	sunday := time.Date(2026, 10, 18, 14, 30, 0, 0, time.UTC)
	result, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:     "Weekend delivery",
		StaffIDs:  []uuid.UUID{suite.s1.ID},
		DueDate:   &sunday,
		StartDate: &sunday,
		CreatorID: suite.admin.ID,
	})
	suite.Require().NoError(err)

	monday := time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)
	assert.True(suite.T(), monday.Equal(*result.Tasks[0].DueDate))
	assert.True(suite.T(), monday.Equal(*result.Tasks[0].StartDate))
}

// A failing row insert stops the loop; committed clones stay
func (suite *TaskServiceTestSuite) TestCreateTask_PartialFailure() {
	inserts := 0
	errDiskFull := errors.New("disk full")
	suite.Require().NoError(suite.db.Callback().Create().Before("gorm:create").Register("test:fail_third_task", func(tx *gorm.DB) {
		if tx.Statement.Table != "tasks" {
			return
		}
		inserts++
		if inserts == 3 {
			tx.AddError(errDiskFull)
		}
	}))

	result, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:     "Inventory",
		StaffIDs:  []uuid.UUID{suite.s1.ID, suite.s2.ID, suite.s3.ID},
		CreatorID: suite.admin.ID,
	})

	suite.Require().Error(err)
	assert.ErrorIs(suite.T(), err, errDiskFull)
	suite.Require().NotNil(result)
	assert.Equal(suite.T(), []string{"T100", "T100.1"}, result.TaskNumbers())
	assert.Equal(suite.T(), int64(2), suite.taskCount())
	assert.Len(suite.T(), result.Notifications, 2)
}

// The delegatee's completion is held for verification
func (suite *TaskServiceTestSuite) TestUpdateTask_CompletionIntercepted() {
	task := suite.createFor(suite.s1).Tasks[0]
	delegation, msgs, err := suite.delegations.Delegate(suite.ctx, DelegateInput{
		TaskID:      task.ID,
		FromStaffID: suite.s1.ID,
		ToStaffID:   suite.s2.ID,
		Notes:       "covering my shift",
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID}, recipients(msgs))

	completed := models.TaskStatusCompleted
	notes := "done and filed"
	result, err := suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{
		Status:         &completed,
		DelegateeNotes: &notes,
		ActorID:        suite.s2.ID,
	})
	suite.Require().NoError(err)
	assert.True(suite.T(), result.Intercepted)
	assert.Equal(suite.T(), []uuid.UUID{suite.s1.ID}, recipients(result.Notifications))
	assert.Equal(suite.T(), notify.TypeDelegationCompleted, result.Notifications[0].Type)

	var stored models.TaskDelegation
	suite.Require().NoError(suite.db.First(&stored, "id = ?", delegation.ID).Error)
	assert.Equal(suite.T(), models.DelegationCompleted, stored.Status)
	assert.NotNil(suite.T(), stored.CompletedByDelegateeAt)
	suite.Require().NotNil(stored.DelegateeNotes)
	assert.Equal(suite.T(), notes, *stored.DelegateeNotes)

	storedTask, err := suite.taskRepo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TaskStatusTodo, storedTask.Status)
}

// Completion by anyone else is an ordinary update
func (suite *TaskServiceTestSuite) TestUpdateTask_CompletionByOthersFallsThrough() {
	task := suite.createFor(suite.s1).Tasks[0]
	delegation, _, err := suite.delegations.Delegate(suite.ctx, DelegateInput{
		TaskID:      task.ID,
		FromStaffID: suite.s1.ID,
		ToStaffID:   suite.s2.ID,
	})
	suite.Require().NoError(err)

	var before models.TaskDelegation
	suite.Require().NoError(suite.db.First(&before, "id = ?", delegation.ID).Error)

	completed := models.TaskStatusCompleted
	result, err := suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{
		Status:  &completed,
		ActorID: suite.s3.ID,
	})
	suite.Require().NoError(err)
	assert.False(suite.T(), result.Intercepted)
	assert.Equal(suite.T(), models.TaskStatusCompleted, result.Task.Status)

	var after models.TaskDelegation
	suite.Require().NoError(suite.db.First(&after, "id = ?", delegation.ID).Error)
	assert.Equal(suite.T(), before, after)

	var count int64
	suite.db.Model(&models.TaskDelegation{}).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ReplacesAssignments() {
	task := suite.createFor(suite.s1).Tasks[0]

	staff := []uuid.UUID{suite.s2.ID, suite.s1.ID, suite.s2.ID}
	result, err := suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{
		StaffIDs: &staff,
		ActorID:  suite.admin.ID,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID, suite.s1.ID}, []uuid.UUID(result.Task.AssignedStaffIDs))
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID}, recipients(result.Notifications))
	assert.Equal(suite.T(), int64(2), suite.assignmentCount(task.ID))

	var rows []models.TaskAssignment
	suite.db.Where("task_id = ?", task.ID).Find(&rows)
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.StaffID
	}
	assert.ElementsMatch(suite.T(), []uuid.UUID{suite.s1.ID, suite.s2.ID}, ids)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_SwitchToTeam() {
	team := suite.createTeam("TM1", suite.s3, suite.s2)
	task := suite.createFor(suite.s1).Tasks[0]

	mode := models.AllocationTeam
	teams := []uuid.UUID{team.ID}
	result, err := suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{
		AllocationMode: &mode,
		TeamIDs:        &teams,
		ActorID:        suite.admin.ID,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID, suite.s3.ID}, []uuid.UUID(result.Task.AssignedStaffIDs))
	assert.ElementsMatch(suite.T(), []uuid.UUID{suite.s2.ID, suite.s3.ID}, recipients(result.Notifications))
	assert.Equal(suite.T(), int64(2), suite.assignmentCount(task.ID))

	staff := []uuid.UUID{suite.s1.ID}
	_, err = suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{StaffIDs: &staff, ActorID: suite.admin.ID})
	assert.ErrorIs(suite.T(), err, ErrStaffIDsInTeamMode)
	stored, err := suite.taskRepo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID, suite.s3.ID}, []uuid.UUID(stored.AssignedStaffIDs))
}

func (suite *TaskServiceTestSuite) TestUpdateInput_ApplyToTeamView() {
	mode := models.AllocationTeam
	staff := []uuid.UUID{suite.s1.ID}
	view := TaskView{AllocationMode: models.AllocationIndividual, AssignedStaffIDs: []uuid.UUID{suite.s2.ID}}

	UpdateTaskInput{AllocationMode: &mode, StaffIDs: &staff}.ApplyTo(&view)

	assert.Equal(suite.T(), models.AllocationTeam, view.AllocationMode)
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID}, view.AssignedStaffIDs)
	assert.True(suite.T(), view.Optimistic)

	individual := models.AllocationIndividual
	UpdateTaskInput{AllocationMode: &individual, StaffIDs: &staff}.ApplyTo(&view)
	assert.Equal(suite.T(), []uuid.UUID{suite.s1.ID}, view.AssignedStaffIDs)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_RegisteredStatus() {
	task := suite.createFor(suite.s1).Tasks[0]

	onHold := models.TaskStatus("hold_" + uuid.NewString()[:8])
	_, err := suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{Status: &onHold, ActorID: suite.admin.ID})
	assert.ErrorIs(suite.T(), err, ErrInvalidStatus)

	suite.Require().NoError(models.RegisterTaskStatuses(string(onHold)))
	result, err := suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{Status: &onHold, ActorID: suite.admin.ID})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), onHold, result.Task.Status)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_Validation() {
	task := suite.createFor(suite.s1).Tasks[0]

	blank := "  "
	_, err := suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{Title: &blank})
	assert.ErrorIs(suite.T(), err, ErrTitleEmpty)

	empty := []uuid.UUID{}
	_, err = suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{StaffIDs: &empty})
	assert.ErrorIs(suite.T(), err, ErrNoTargets)

	title := "x"
	_, err = suite.service.UpdateTask(suite.ctx, uuid.New(), UpdateTaskInput{Title: &title})
	assert.ErrorIs(suite.T(), err, ErrTaskNotFound)
}

// The delegator sends the work back
func (suite *TaskServiceTestSuite) TestReject() {
	task := suite.createFor(suite.s1).Tasks[0]
	delegation, _, err := suite.delegations.Delegate(suite.ctx, DelegateInput{
		TaskID:      task.ID,
		FromStaffID: suite.s1.ID,
		ToStaffID:   suite.s2.ID,
	})
	suite.Require().NoError(err)

	completed := models.TaskStatusCompleted
	_, err = suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{Status: &completed, ActorID: suite.s2.ID})
	suite.Require().NoError(err)

	_, _, err = suite.delegations.Reject(suite.ctx, delegation.ID, suite.s1.ID, " \n ")
	assert.ErrorIs(suite.T(), err, ErrReasonRequired)

	rejected, msgs, err := suite.delegations.Reject(suite.ctx, delegation.ID, suite.s1.ID, "  missing receipts ")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.DelegationActive, rejected.Status)

	suite.Require().Len(msgs, 1)
	assert.Equal(suite.T(), suite.s2.ID, msgs[0].RecipientID)
	assert.Equal(suite.T(), notify.TypeDelegationRejected, msgs[0].Type)
	assert.Equal(suite.T(), "missing receipts", msgs[0].Metadata["reason"])
	assert.Contains(suite.T(), msgs[0].Body, "missing receipts")

	var stored models.TaskDelegation
	suite.Require().NoError(suite.db.First(&stored, "id = ?", delegation.ID).Error)
	assert.Equal(suite.T(), models.DelegationActive, stored.Status)
	assert.Nil(suite.T(), stored.CompletedByDelegateeAt)
	assert.Nil(suite.T(), stored.DelegateeNotes)

	storedTask, err := suite.taskRepo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TaskStatusInProgress, storedTask.Status)
}

func (suite *TaskServiceTestSuite) TestVerify() {
	task := suite.createFor(suite.s1).Tasks[0]
	delegation, _, err := suite.delegations.Delegate(suite.ctx, DelegateInput{
		TaskID:      task.ID,
		FromStaffID: suite.s1.ID,
		ToStaffID:   suite.s2.ID,
	})
	suite.Require().NoError(err)

	_, _, err = suite.delegations.Verify(suite.ctx, delegation.ID, suite.s1.ID)
	assert.ErrorIs(suite.T(), err, ErrInvalidDelegationState)

	completed := models.TaskStatusCompleted
	_, err = suite.service.UpdateTask(suite.ctx, task.ID, UpdateTaskInput{Status: &completed, ActorID: suite.s2.ID})
	suite.Require().NoError(err)

	_, _, err = suite.delegations.Verify(suite.ctx, delegation.ID, suite.s3.ID)
	assert.ErrorIs(suite.T(), err, ErrNotDelegator)

	verified, msgs, err := suite.delegations.Verify(suite.ctx, delegation.ID, suite.s1.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.DelegationVerified, verified.Status)
	assert.NotNil(suite.T(), verified.VerifiedByDelegatorAt)
	assert.Equal(suite.T(), []uuid.UUID{suite.s2.ID, suite.admin.ID}, recipients(msgs))

	storedTask, err := suite.taskRepo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TaskStatusCompleted, storedTask.Status)
}

// Deleting a parent cascades only when confirmed
func (suite *TaskServiceTestSuite) TestDeleteTask_GuardedCascade() {
	result := suite.createFor(suite.s1, suite.s2, suite.s3)
	parent := result.Tasks[0]

	var asked []string
	decline := func(p *models.Task, children []models.Task) bool {
		for _, c := range children {
			asked = append(asked, c.TaskNo)
		}
		return false
	}

	deleted, err := suite.service.DeleteTask(suite.ctx, parent.ID, decline)
	assert.ErrorIs(suite.T(), err, ErrDeleteCancelled)
	var declined *CascadeDeclinedError
	suite.Require().ErrorAs(err, &declined)
	assert.Equal(suite.T(), []string{"T100.1", "T100.2"}, declined.Children)
	assert.Equal(suite.T(), []string{"T100.1", "T100.2"}, asked)
	assert.Nil(suite.T(), deleted)
	assert.Equal(suite.T(), int64(3), suite.taskCount())

	_, err = suite.service.DeleteTask(suite.ctx, parent.ID, nil)
	assert.ErrorIs(suite.T(), err, ErrDeleteCancelled)
	assert.Equal(suite.T(), int64(3), suite.taskCount())

	deleted, err = suite.service.DeleteTask(suite.ctx, parent.ID, func(*models.Task, []models.Task) bool { return true })
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []string{"T100", "T100.1", "T100.2"}, deleted)
	assert.Zero(suite.T(), suite.taskCount())

	var assignments int64
	suite.db.Model(&models.TaskAssignment{}).Count(&assignments)
	assert.Zero(suite.T(), assignments)
}

func (suite *TaskServiceTestSuite) TestDeleteTask_CloneOnly() {
	result := suite.createFor(suite.s1, suite.s2)

	called := false
	deleted, err := suite.service.DeleteTask(suite.ctx, result.Tasks[1].ID, func(*models.Task, []models.Task) bool {
		called = true
		return false
	})
	suite.Require().NoError(err)
	assert.False(suite.T(), called)
	assert.Equal(suite.T(), []string{"T100.1"}, deleted)
	assert.Equal(suite.T(), int64(1), suite.taskCount())
}

func (suite *TaskServiceTestSuite) TestGenerateTasks_NotConfigured() {
	_, err := suite.service.GenerateTasks(suite.ctx, GenerateTasksInput{Text: "sweep the floor"})
	assert.ErrorIs(suite.T(), err, ErrAIServiceNotConfigured)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
