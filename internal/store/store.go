// Package store holds the gorm-backed repositories the installation engine
// reads blueprints from and writes live schema and ledger rows to.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nebari-dev/crmkit/internal/db"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Store wraps a gorm handle. Inside Transaction the handle is the open
// transaction, so every repository method joins it.
type Store struct {
	db *gorm.DB
}

// New creates a Store over an already-migrated database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying GORM DB for advanced queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside a single database transaction. Any error
// returned by fn (or a panic) rolls back every write made through the
// Store passed to fn.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrap translates gorm/driver errors into store-level sentinels.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, db.TranslateError(err))
}
