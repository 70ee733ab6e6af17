package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/dto"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
	"github.com/yukikurage/taskflow/internal/middleware"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/notify"
	"github.com/yukikurage/taskflow/internal/services"
	"github.com/yukikurage/taskflow/internal/tasksync"
)

type DelegationHandler struct {
	delegationService *services.DelegationService
	cache             *tasksync.Cache
	dispatcher        *notify.Dispatcher
}

func NewDelegationHandler(delegationService *services.DelegationService, cache *tasksync.Cache, dispatcher *notify.Dispatcher) *DelegationHandler {
	return &DelegationHandler{
		delegationService: delegationService,
		cache:             cache,
		dispatcher:        dispatcher,
	}
}

// Delegate hands a task over from the current staff member to another
func (h *DelegationHandler) Delegate(c *gin.Context) {
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

	var req dto.DelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	var (
		delegation *models.TaskDelegation
		msgs       []notify.Message
	)
	err := h.cache.Update(ctx, taskID, func(v *services.TaskView) {
		v.DelegationCount++
		v.HasDelegations = true
	}, func(ctx context.Context) error {
		var err error
		delegation, msgs, err = h.delegationService.Delegate(ctx, services.DelegateInput{
			TaskID:      taskID,
			FromStaffID: userID,
			ToStaffID:   req.ToStaffID,
			Notes:       req.Notes,
		})
		return err
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.dispatch(ctx, msgs)
	c.JSON(http.StatusCreated, dto.ToDelegationDTO(*delegation))
}

// Verify approves work the delegatee has marked complete
func (h *DelegationHandler) Verify(c *gin.Context) {
	h.review(c, func(ctx context.Context, delegationID, actorID uuid.UUID) (*models.TaskDelegation, []notify.Message, error) {
		return h.delegationService.Verify(ctx, delegationID, actorID)
	})
}

// Reject sends completed work back to the delegatee with a reason
func (h *DelegationHandler) Reject(c *gin.Context) {
	var req dto.RejectDelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "A rejection reason is required")
		return
	}

	h.review(c, func(ctx context.Context, delegationID, actorID uuid.UUID) (*models.TaskDelegation, []notify.Message, error) {
		return h.delegationService.Reject(ctx, delegationID, actorID, req.Reason)
	})
}

type reviewFunc func(ctx context.Context, delegationID, actorID uuid.UUID) (*models.TaskDelegation, []notify.Message, error)

func (h *DelegationHandler) review(c *gin.Context, run reviewFunc) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	delegationID, ok := middleware.GetResourceID(c, constants.ContextKeyDelegationID)
	if !ok {
		apierrors.BadRequest(c, "Invalid delegation ID")
		return
	}

	ctx := c.Request.Context()
	var (
		delegation *models.TaskDelegation
		msgs       []notify.Message
	)
	err := h.cache.Commit(ctx, tasksync.ReasonDelegation, func(ctx context.Context) error {
		var err error
		delegation, msgs, err = run(ctx, delegationID, userID)
		return err
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.dispatch(ctx, msgs)
	c.JSON(http.StatusOK, dto.ToDelegationDTO(*delegation))
}

func (h *DelegationHandler) dispatch(ctx context.Context, msgs []notify.Message) {
	if h.dispatcher == nil || len(msgs) == 0 {
		return
	}
	h.dispatcher.DispatchAll(ctx, msgs)
}
