package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/constants"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
)

// RequireAuth checks if the staff member is authenticated via session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		raw, ok := session.Get(constants.ContextKeyUserID).(string)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		staffID, err := uuid.Parse(raw)
		if err != nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store staff ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, staffID)
		c.Next()
	}
}

// GetUserID retrieves the current staff ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}

	switch v := value.(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	default:
		return uuid.Nil, false
	}
}
