package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/database"
	"github.com/yukikurage/taskflow/internal/middleware"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/notify"
	"github.com/yukikurage/taskflow/internal/repository"
	"github.com/yukikurage/taskflow/internal/services"
	"github.com/yukikurage/taskflow/internal/tasksync"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testStaffHeader = "X-Test-Staff"

// testEnv wires the full handler stack over an in-memory database
type testEnv struct {
	db     *gorm.DB
	cache  *tasksync.Cache
	router *gin.Engine

	authService *services.AuthService
	taskHandler *TaskHandler
	delegations *DelegationHandler
	inbox       *NotificationHandler
	teams       *TeamHandler
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.Models()...))
	database.SetDB(db)
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)

	taskRepo := repository.NewTaskRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	delegationRepo := repository.NewDelegationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	delegationService := services.NewDelegationService(delegationRepo, taskRepo, staffRepo)
	taskService := services.NewTaskService(taskRepo, teamRepo, delegationService, nil)
	aggregator := services.NewTaskAggregator(taskRepo, staffRepo, teamRepo)

	cache, err := tasksync.New(aggregator)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	dispatcher := notify.NewDispatcher(notify.NewStoreSink(notificationRepo, nil))

	env := &testEnv{
		db:          db,
		cache:       cache,
		authService: services.NewAuthService(staffRepo),
		taskHandler: NewTaskHandler(taskService, cache, dispatcher),
		delegations: NewDelegationHandler(delegationService, cache, dispatcher),
		inbox:       NewNotificationHandler(services.NewNotificationService(notificationRepo)),
		teams:       NewTeamHandler(services.NewTeamService(teamRepo)),
	}

	r := gin.New()
	// Stands in for RequireAuth
	r.Use(func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader(testStaffHeader)); err == nil {
			c.Set(constants.ContextKeyUserID, id)
		}
		c.Next()
	})
	r.GET("/api/tasks", env.taskHandler.ListTasks)
	r.POST("/api/tasks", env.taskHandler.CreateTask)
	r.POST("/api/tasks/generate", env.taskHandler.GenerateTasks)
	r.PATCH("/api/tasks/:id", middleware.RequireTaskID(), env.taskHandler.UpdateTask)
	r.DELETE("/api/tasks/:id", middleware.RequireTaskID(), env.taskHandler.DeleteTask)
	r.POST("/api/tasks/:id/delegations", middleware.RequireTaskID(), env.delegations.Delegate)
	r.POST("/api/delegations/:id/verify", middleware.RequireResourceID(constants.ContextKeyDelegationID, "delegation"), env.delegations.Verify)
	r.POST("/api/delegations/:id/reject", middleware.RequireResourceID(constants.ContextKeyDelegationID, "delegation"), env.delegations.Reject)
	r.GET("/api/notifications", env.inbox.ListNotifications)
	r.POST("/api/notifications/:id/viewed", middleware.RequireResourceID(constants.ContextKeyNotificationID, "notification"), env.inbox.MarkViewed)
	r.GET("/api/teams", env.teams.ListTeams)
	env.router = r

	return env
}

func (e *testEnv) createStaff(t *testing.T, name string, role models.StaffRole) *models.Staff {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)

	staff := &models.Staff{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, e.db.Create(staff).Error)
	return staff
}

func (e *testEnv) createTeam(t *testing.T, name string, leader *models.Staff, members ...*models.Staff) *models.Team {
	t.Helper()
	team := &models.Team{Name: name}
	if leader != nil {
		team.LeaderID = &leader.ID
	}
	require.NoError(t, e.db.Create(team).Error)

	for _, m := range members {
		require.NoError(t, e.db.Create(&models.TeamMember{TeamID: team.ID, StaffID: m.ID}).Error)
	}
	return team
}

// do sends a request as staffID (uuid.Nil for anonymous) and returns the recorder
func (e *testEnv) do(t *testing.T, method, url string, body any, staffID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, url, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if staffID != uuid.Nil {
		req.Header.Set(testStaffHeader, staffID.String())
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
