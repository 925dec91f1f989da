package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/crmkit/internal/config"
	"github.com/nebari-dev/crmkit/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultMaxIdleConns    = 10
	defaultMaxOpenConns    = 100
	defaultConnMaxLifetime = time.Hour
)

// New opens the configured database. SQLite runs in WAL mode behind a
// single connection; postgres gets a pool sized from cfg.
func New(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if isSQLite(cfg.Driver) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		return gdb, nil
	}

	idle := orDefault(cfg.MaxIdleConns, defaultMaxIdleConns)
	open := orDefault(cfg.MaxOpenConns, defaultMaxOpenConns)
	lifetime := defaultConnMaxLifetime
	if cfg.ConnMaxLifetime > 0 {
		lifetime = time.Duration(cfg.ConnMaxLifetime) * time.Minute
	}
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetMaxOpenConns(open)
	sqlDB.SetConnMaxLifetime(lifetime)
	slog.Debug("Configured postgres pool", "max_idle", idle, "max_open", open, "lifetime", lifetime)
	return gdb, nil
}

func openDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch {
	case isSQLite(cfg.Driver):
		// Foreign keys stay off: template_origin_id is not a FK.
		return sqlite.Open(cfg.DSN + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"), nil
	case cfg.Driver == "postgres" || cfg.Driver == "postgresql":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func isSQLite(driver string) bool { return driver == "sqlite" }

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// gormLogLevel maps an application log level onto gorm's logger levels.
// gorm logs every statement at Info, so app-level debug is needed to see SQL.
func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "info", "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// AllModels lists every table the service owns, in migration order.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.AuditLog{},
		&models.Company{},
		&models.Template{},
		&models.Module{},
		&models.BlueprintObject{},
		&models.BlueprintField{},
		&models.BlueprintAssociation{},
		&models.ObjectType{},
		&models.ObjectField{},
		&models.AssociationType{},
		&models.CrmObject{},
		&models.ObjectAssociation{},
		&models.CompanyTemplate{},
		&models.CompanyInstalledModule{},
	}
}

// Migrate creates or updates every table in AllModels.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
