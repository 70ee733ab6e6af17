package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/dto"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
	"github.com/yukikurage/taskflow/internal/middleware"
	"github.com/yukikurage/taskflow/internal/services"
)

// AuthHandler coordinates staff login and account handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login authenticates a staff member by email and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	staff, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	// Drop whatever the previous session held before binding the new identity
	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, staff.ID.String())
	if err := session.Save(); err != nil {
		log.Error().Err(err).Msg("failed to save session")
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	log.Info().Str("staff_id", staff.ID.String()).Msg("staff logged in")
	c.JSON(http.StatusOK, dto.ToStaffDTO(*staff))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		log.Error().Err(err).Msg("failed to clear session")
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentStaff returns the authenticated staff member.
func (h *AuthHandler) GetCurrentStaff(c *gin.Context) {
	staffID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	staff, err := h.authService.GetStaff(c.Request.Context(), staffID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStaffDTO(*staff))
}

// CreateStaff registers a staff account. Admin only.
func (h *AuthHandler) CreateStaff(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	staff, err := h.authService.CreateStaff(c.Request.Context(), services.CreateStaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	log.Info().Str("staff_id", staff.ID.String()).Str("role", string(staff.Role)).Msg("staff account created")
	c.JSON(http.StatusCreated, dto.ToStaffDTO(*staff))
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrEmailRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.AlreadyExists(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, err.Error())
	case errors.Is(err, services.ErrStaffNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrFailedToHashPassword):
		apierrors.InternalError(c, err.Error())
	default:
		log.Error().Err(err).Msg("auth request failed")
		apierrors.InternalError(c, "Internal server error")
	}
}
