package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/audit"
	"github.com/nebari-dev/crmkit/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BasicAuthenticator checks bcrypt passwords stored on users and issues
// bearer tokens signed with the configured secret.
type BasicAuthenticator struct {
	db     *gorm.DB
	tokens *tokenSigner
}

func NewBasicAuthenticator(db *gorm.DB, jwtSecret string) *BasicAuthenticator {
	return &BasicAuthenticator{db: db, tokens: newTokenSigner(jwtSecret, DefaultTokenTTL)}
}

// CreateUser stores a new user with a bcrypt-hashed password. An empty
// email defaults to <username>@crmkit.local.
func CreateUser(db *gorm.DB, username, email, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if email == "" {
		email = username + "@crmkit.local"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{Username: username, Email: email, PasswordHash: string(hash)}
	if err := db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (a *BasicAuthenticator) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var user models.User
	err := a.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Warn("Login attempt for unknown user", "username", username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	resource := "user:" + user.Username
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		slog.Warn("Login attempt with wrong password", "username", username)
		audit.LogAction(a.db, &user.ID, uuid.Nil, audit.ActionLoginFailed, resource, nil)
		return nil, ErrInvalidCredentials
	}

	token, expires, err := a.tokens.issue(user.ID)
	if err != nil {
		return nil, err
	}
	audit.LogAction(a.db, &user.ID, uuid.Nil, audit.ActionLogin, resource, nil)
	slog.Info("User logged in", "user_id", user.ID, "username", user.Username)
	return &LoginResponse{Token: token, ExpiresAt: expires, User: &user}, nil
}

func (a *BasicAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		userID, err := a.tokens.verify(raw)
		if err != nil {
			slog.Debug("Rejected token", "error", err)
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		var user models.User
		if err := a.db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
			abortUnauthorized(c, "unknown user")
			return
		}
		c.Set(userKey, &user)
		c.Next()
	}
}
