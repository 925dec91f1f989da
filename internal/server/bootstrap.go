package server

import (
	"fmt"
	"log/slog"

	"github.com/nebari-dev/crmkit/internal/auth"
	"github.com/nebari-dev/crmkit/internal/config"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"gorm.io/gorm"
)

// bootstrapAdmin creates the configured administrator when the users table
// is empty. The RBAC enforcer must already be initialized.
func bootstrapAdmin(database *gorm.DB, cfg config.AdminConfig) error {
	if cfg.Username == "" || cfg.Password == "" {
		slog.Debug("No admin credentials configured, skipping bootstrap")
		return nil
	}

	var count int64
	if err := database.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		slog.Debug("Users already exist, skipping admin bootstrap")
		return nil
	}

	user, err := auth.CreateUser(database, cfg.Username, cfg.Email, cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	if err := rbac.MakeAdmin(user.ID); err != nil {
		return fmt.Errorf("failed to grant admin role: %w", err)
	}

	slog.Info("Default admin user created", "username", user.Username, "email", user.Email)
	return nil
}
