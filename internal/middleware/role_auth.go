package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow/internal/database"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
	"github.com/yukikurage/taskflow/internal/models"
)

// RequireRole checks that the authenticated staff member holds role.
// Must run after RequireAuth.
func RequireRole(role models.StaffRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		staffID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var staff models.Staff
		if err := database.GetDB().WithContext(c.Request.Context()).
			Where("id = ?", staffID).
			First(&staff).Error; err != nil {
			// Deleted staff keep their session until it expires
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if staff.Role != role {
			apierrors.Forbidden(c, "Only "+string(role)+" staff can perform this action")
			c.Abort()
			return
		}

		c.Set("staff", staff)
		c.Next()
	}
}
