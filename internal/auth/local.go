package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"gorm.io/gorm"
)

// LocalUsername is the user every request runs as when authentication is off.
const LocalUsername = "local"

// NoneAuthenticator is used with auth.type=none. Every request is
// authenticated as the local admin user, which is created on first use.
type NoneAuthenticator struct {
	db   *gorm.DB
	mu   sync.Mutex
	user *models.User
}

// NewNoneAuthenticator creates an authenticator that accepts every request.
func NewNoneAuthenticator(db *gorm.DB) *NoneAuthenticator {
	return &NoneAuthenticator{db: db}
}

// Login is not available when authentication is disabled.
func (a *NoneAuthenticator) Login(context.Context, string, string) (*LoginResponse, error) {
	return nil, ErrAuthDisabled
}

// Middleware sets the local admin user on every request.
func (a *NoneAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.localUser()
		if err != nil {
			slog.Error("Failed to get/create local user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// localUser finds or creates the local admin user.
func (a *NoneAuthenticator) localUser() (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user != nil {
		return a.user, nil
	}

	var user models.User
	err := a.db.Where("username = ?", LocalUsername).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Username: LocalUsername,
			Email:    LocalUsername + "@localhost",
		}
		err = a.db.Create(&user).Error
	}
	if err != nil {
		return nil, err
	}

	if err := rbac.MakeAdmin(user.ID); err != nil {
		return nil, err
	}
	a.user = &user
	return a.user, nil
}
