package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/auth"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
)

func currentUser(c *gin.Context) (*models.User, bool) {
	user, err := auth.UserFromContext(c)
	return user, err == nil
}

// RequireAdmin ensures the user is an admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		isAdmin, err := rbac.IsAdmin(user.ID)
		if err != nil || !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireCompanyAccess checks that the user may perform action on the
// company named by the :id path parameter.
func RequireCompanyAccess(action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		companyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid company ID"})
			c.Abort()
			return
		}

		allowed, err := rbac.Can(user.ID, companyID, action)
		if err != nil {
			slog.Error("RBAC check failed", "user_id", user.ID, "company_id", companyID, "action", action, "error", err)
		}
		if err != nil || !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
