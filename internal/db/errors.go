package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicate indicates a write was rejected by a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// IsUniqueViolation reports whether err was caused by a unique constraint,
// for either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	// glebarez/sqlite surfaces constraint failures as plain messages
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// TranslateError maps driver-specific constraint failures to ErrDuplicate so
// callers can use errors.Is without knowing which database is configured.
func TranslateError(err error) error {
	if err == nil || errors.Is(err, ErrDuplicate) {
		return err
	}
	if IsUniqueViolation(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
