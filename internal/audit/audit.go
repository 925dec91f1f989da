package audit

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/models"
	"gorm.io/gorm"
)

// Audit actions constants
const (
	ActionInstallTemplate   = "install_template"
	ActionInstallModule     = "install_module"
	ActionUninstallModule   = "uninstall_module"
	ActionUninstallReported = "uninstall_module_reported"
	ActionCreateCompany     = "create_company"
	ActionSyncTemplate      = "sync_template"
	ActionLogin             = "login"
	ActionLoginFailed       = "login_failed"
)

// LogAction records an audit log entry. userID may be nil for actions that
// did not come through an authenticated request.
func LogAction(db *gorm.DB, userID *uuid.UUID, companyID uuid.UUID, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	log := models.AuditLog{
		UserID:      userID,
		CompanyID:   companyID,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now(),
	}

	if err := db.Create(&log).Error; err != nil {
		slog.Warn("Failed to write audit log", "action", action, "resource", resource, "error", err)
		return err
	}
	return nil
}

// ForCompany returns audit entries for a company, newest first.
func ForCompany(db *gorm.DB, companyID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []models.AuditLog
	err := db.Where("company_id = ?", companyID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
