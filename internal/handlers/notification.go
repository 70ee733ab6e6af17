package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/dto"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
	"github.com/yukikurage/taskflow/internal/middleware"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/services"
	"github.com/yukikurage/taskflow/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// ListNotifications returns the current staff member's inbox, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	notifications, total, err := h.notificationService.ListNotifications(c.Request.Context(), userID, params)
	if err != nil {
		log.Error().Err(err).Msg("failed to list notifications")
		apierrors.InternalError(c, "Failed to fetch notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	c.JSON(http.StatusOK, dto.NotificationListResponse{
		Notifications: notifications,
		Pagination:    params.Response(total),
	})
}

// MarkViewed flags a notification as viewed
func (h *NotificationHandler) MarkViewed(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	notificationID, ok := middleware.GetResourceID(c, constants.ContextKeyNotificationID)
	if !ok {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkViewed(c.Request.Context(), notificationID, userID); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			apierrors.NotFound(c, err.Error())
			return
		}
		log.Error().Err(err).Msg("failed to mark notification viewed")
		apierrors.InternalError(c, "Failed to update notification")
		return
	}

	c.Status(http.StatusNoContent)
}
