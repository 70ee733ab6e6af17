package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/constants"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
)

// RequireResourceID parses the :id path parameter into a UUID and stores it
// under key. Malformed ids are rejected before reaching the handler.
func RequireResourceID(key, label string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apierrors.BadRequest(c, "Invalid "+label+" ID")
			c.Abort()
			return
		}

		c.Set(key, id)
		c.Next()
	}
}

// RequireTaskID parses the task id of a /tasks/:id route
func RequireTaskID() gin.HandlerFunc {
	return RequireResourceID(constants.ContextKeyTaskID, "task")
}

// GetResourceID retrieves an id stored by RequireResourceID
func GetResourceID(c *gin.Context, key string) (uuid.UUID, bool) {
	value, exists := c.Get(key)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// GetTaskID retrieves the task id stored by RequireTaskID
func GetTaskID(c *gin.Context) (uuid.UUID, bool) {
	return GetResourceID(c, constants.ContextKeyTaskID)
}
