// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nebari-dev/crmkit/internal/api"
	"github.com/nebari-dev/crmkit/internal/api/handlers"
	"github.com/nebari-dev/crmkit/internal/blueprint"
	"github.com/nebari-dev/crmkit/internal/cache"
	"github.com/nebari-dev/crmkit/internal/config"
	"github.com/nebari-dev/crmkit/internal/db"
	"github.com/nebari-dev/crmkit/internal/logger"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"github.com/nebari-dev/crmkit/internal/service"
	"github.com/nebari-dev/crmkit/internal/store"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Open loads configuration, initializes logging and returns a migrated
// database. It is shared by the server and the CLI commands.
func Open() (*config.Config, *gorm.DB, error) {
	appCfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level)

	database, err := db.New(appCfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	return appCfg, database, nil
}

// NewCache builds the installation cache selected by configuration.
func NewCache(cfg config.CacheConfig) (cache.Cache, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	switch cfg.Type {
	case "", "none":
		return cache.Noop{}, nil
	case "memory":
		return cache.NewMemoryCache(ttl), nil
	case "valkey":
		return cache.NewValkeyCache(cfg.ValkeyAddr, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	appCfg, database, err := Open()
	if err != nil {
		return err
	}
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}
	slog.Info("Starting crmkit server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	st := store.New(database)
	defer st.Close()

	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	if err := bootstrapAdmin(database, appCfg.Admin); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	if dir := appCfg.Blueprints.Dir; dir != "" {
		results, err := blueprint.SyncDir(ctx, st, dir, appCfg.Blueprints.Pattern)
		if err != nil {
			return fmt.Errorf("failed to sync blueprints: %w", err)
		}
		slog.Info("Blueprints synced", "dir", dir, "templates", len(results))
	}

	installCache, err := NewCache(appCfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer installCache.Close()
	slog.Info("Installation cache initialized", "type", appCfg.Cache.Type)

	svc := service.New(st, installCache)
	router := api.NewRouter(appCfg, database, svc)

	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		slog.Info("Server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("crmkit exited")
	return nil
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}
