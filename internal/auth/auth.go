// Package auth authenticates API requests and stores the resolved user on
// the gin context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/crmkit/internal/models"
)

// userKey is the gin context key holding the authenticated *models.User.
const userKey = "crmkit.user"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries a bearer token and the user it was issued to.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Authenticator is implemented by the basic (JWT) and none providers.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	// Middleware rejects unauthenticated requests and stores the user for
	// UserFromContext.
	Middleware() gin.HandlerFunc
}

// UserFromContext returns the user stored by an Authenticator's middleware.
func UserFromContext(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(userKey)
	if !exists {
		return nil, ErrUnauthorized
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("invalid user in context")
	}
	return user, nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
