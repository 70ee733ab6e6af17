package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/dto"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
	"github.com/yukikurage/taskflow/internal/middleware"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/notify"
	"github.com/yukikurage/taskflow/internal/services"
	"github.com/yukikurage/taskflow/internal/tasksync"
	"github.com/yukikurage/taskflow/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	cache       *tasksync.Cache
	dispatcher  *notify.Dispatcher
}

func NewTaskHandler(taskService *services.TaskService, cache *tasksync.Cache, dispatcher *notify.Dispatcher) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		cache:       cache,
		dispatcher:  dispatcher,
	}
}

// ListTasks returns one page of the aggregated task list.
// Filters: status, assigned_to_me=true
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	views, err := h.cache.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list tasks")
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	status := models.TaskStatus(c.Query("status"))
	assignedToMe, _ := strconv.ParseBool(c.DefaultQuery("assigned_to_me", "false"))

	filtered := views[:0]
	for _, view := range views {
		if status != "" && view.Status != status {
			continue
		}
		if assignedToMe && !isAssigned(view, userID) {
			continue
		}
		filtered = append(filtered, view)
	}

	params := utils.GetPaginationParams(c)
	start, end := params.Window(len(filtered))

	c.JSON(http.StatusOK, dto.ToTaskListResponse(filtered[start:end], params, int64(len(filtered))))
}

// CreateTask creates one task, or one clone per target
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := req.ToInput(userID)
	ctx := c.Request.Context()

	var result *services.CreateTaskResult
	err := h.cache.Create(ctx, input.Placeholders(time.Now()), func(ctx context.Context) error {
		var err error
		result, err = h.taskService.CreateTask(ctx, input)
		return err
	})

	if result != nil {
		h.dispatch(ctx, result.Notifications)
	}

	if err != nil {
		if result != nil {
			// Clones committed before the failure are real rows
			h.cache.Invalidate()
			log.Error().Err(err).Strs("created", result.TaskNumbers()).Msg("task creation stopped partway")
		}
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCreateTaskResponse(result))
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := req.ToInput(userID)
	ctx := c.Request.Context()

	var result *services.UpdateTaskResult
	err := h.cache.Update(ctx, taskID, input.ApplyTo, func(ctx context.Context) error {
		var err error
		result, err = h.taskService.UpdateTask(ctx, taskID, input)
		return err
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.dispatch(ctx, result.Notifications)

	status := http.StatusOK
	if result.Intercepted {
		status = http.StatusAccepted
	}
	c.JSON(status, dto.UpdateTaskResponse{
		Task:                dto.ToTaskDTO(*result.Task),
		PendingVerification: result.Intercepted,
	})
}

// DeleteTask deletes a task. Parents of clones need ?confirm=true.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	confirmed, _ := strconv.ParseBool(c.DefaultQuery("confirm", "false"))
	confirm := func(*models.Task, []models.Task) bool {
		return confirmed
	}

	var deleted []string
	err := h.cache.Delete(c.Request.Context(), []uuid.UUID{taskID}, func(ctx context.Context) error {
		var err error
		deleted, err = h.taskService.DeleteTask(ctx, taskID, confirm)
		return err
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeleteTaskResponse{Deleted: deleted})
}

// GenerateTasks drafts tasks from free text using AI. Nothing is stored.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.taskService.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{
		Text:      req.Text,
		CreatorID: userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"drafts": drafts,
	})
}

func (h *TaskHandler) dispatch(ctx context.Context, msgs []notify.Message) {
	if h.dispatcher == nil || len(msgs) == 0 {
		return
	}
	h.dispatcher.DispatchAll(ctx, msgs)
}

func isAssigned(view services.TaskView, staffID uuid.UUID) bool {
	for _, s := range view.AssignedStaff {
		if s.ID == staffID {
			return true
		}
	}
	for _, id := range view.AssignedStaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

func respondTaskError(c *gin.Context, err error) {
	var declined *services.CascadeDeclinedError
	switch {
	case errors.As(err, &declined):
		apierrors.ConfirmationRequired(c, "Task has clones; repeat with confirm=true to delete them too", gin.H{
			"task_no":  declined.TaskNo,
			"children": declined.Children,
		})
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrDelegationNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrNoTargets),
		errors.Is(err, services.ErrInvalidAllocationMode),
		errors.Is(err, services.ErrStaffIDsInTeamMode),
		errors.Is(err, services.ErrReasonRequired),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrSelfDelegation),
		errors.Is(err, services.ErrDelegateeNotFound):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotDelegator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidDelegationState):
		apierrors.InvalidState(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.BadRequest(c, err.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		apierrors.InternalError(c, "Internal server error")
	}
}
