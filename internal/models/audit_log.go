package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog represents a record of installation actions for compliance
type AuditLog struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	UserID      *uuid.UUID `gorm:"type:text;index" json:"user_id,omitempty"` // nil for CLI-initiated actions
	CompanyID   uuid.UUID  `gorm:"type:text;index" json:"company_id"`
	Action      string     `gorm:"not null" json:"action"`        // e.g., "install_template", "uninstall_module"
	Resource    string     `gorm:"not null" json:"resource"`      // e.g., "template:movers_crm", "module:inventory"
	DetailsJSON string     `gorm:"type:text" json:"details_json"` // Additional context in JSON
	Timestamp   time.Time  `gorm:"not null;index" json:"timestamp"`
}
