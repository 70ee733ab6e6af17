package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the "code" field of every error body
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeAlreadyExists        = "ALREADY_EXISTS"
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// kind pairs a status with its code and the message used when none is given
type kind struct {
	status   int
	code     string
	fallback string
}

var (
	unauthorized         = kind{http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"}
	invalidCredentials   = kind{http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid email or password"}
	forbidden            = kind{http.StatusForbidden, ErrCodeForbidden, "Access denied"}
	badRequest           = kind{http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request"}
	notFound             = kind{http.StatusNotFound, ErrCodeNotFound, "Resource not found"}
	alreadyExists        = kind{http.StatusConflict, ErrCodeAlreadyExists, "Resource already exists"}
	invalidState         = kind{http.StatusConflict, ErrCodeInvalidState, "Operation not allowed in the current state"}
	confirmationRequired = kind{http.StatusConflict, ErrCodeConfirmationRequired, "Confirmation required"}
	internalError        = kind{http.StatusInternalServerError, ErrCodeInternalError, "Internal server error"}
	serviceUnavailable   = kind{http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable"}
)

func (k kind) respond(c *gin.Context, message string, details any) {
	if message == "" {
		message = k.fallback
	}
	c.JSON(k.status, &APIError{
		Code:    k.code,
		Message: message,
		Details: details,
	})
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	unauthorized.respond(c, message, nil)
}

// InvalidCredentials sends a 401 response for a failed login
func InvalidCredentials(c *gin.Context, message string) {
	invalidCredentials.respond(c, message, nil)
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	forbidden.respond(c, message, nil)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	badRequest.respond(c, message, nil)
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	notFound.respond(c, message, nil)
}

func AlreadyExists(c *gin.Context, message string) {
	alreadyExists.respond(c, message, nil)
}

// InvalidState sends a 409 response for a transition the current state does not allow
func InvalidState(c *gin.Context, message string) {
	invalidState.respond(c, message, nil)
}

// ConfirmationRequired sends a 409 response listing what a confirmed retry would affect
func ConfirmationRequired(c *gin.Context, message string, details any) {
	confirmationRequired.respond(c, message, details)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	internalError.respond(c, message, nil)
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	serviceUnavailable.respond(c, message, nil)
}
