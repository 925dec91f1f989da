package server

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/crmkit/internal/cache"
	"github.com/nebari-dev/crmkit/internal/config"
	"github.com/nebari-dev/crmkit/internal/db"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewCache(t *testing.T) {
	c, err := NewCache(config.CacheConfig{Type: "none"})
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if _, ok := c.(cache.Noop); !ok {
		t.Errorf("none = %T, want cache.Noop", c)
	}

	c, err = NewCache(config.CacheConfig{Type: "memory", TTLSeconds: 60})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := c.(*cache.MemoryCache); !ok {
		t.Errorf("memory = %T, want *cache.MemoryCache", c)
	}
	c.Close()

	if _, err := NewCache(config.CacheConfig{Type: "redis"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}

func TestBootstrapAdmin(t *testing.T) {
	database, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		t.Fatalf("init enforcer: %v", err)
	}

	if err := bootstrapAdmin(database, config.AdminConfig{}); err != nil {
		t.Fatalf("bootstrap without credentials: %v", err)
	}
	var count int64
	database.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no users without credentials, got %d", count)
	}

	cfg := config.AdminConfig{Username: "root", Password: "secret"}
	if err := bootstrapAdmin(database, cfg); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	var user models.User
	if err := database.Where("username = ?", "root").First(&user).Error; err != nil {
		t.Fatalf("admin user not created: %v", err)
	}
	if user.Email != "root@crmkit.local" {
		t.Errorf("email = %q", user.Email)
	}
	if ok, _ := rbac.IsAdmin(user.ID); !ok {
		t.Error("bootstrapped user is not an admin")
	}

	// A second run is a no-op once users exist.
	if err := bootstrapAdmin(database, config.AdminConfig{Username: "other", Password: "x"}); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	database.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}
