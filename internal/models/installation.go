package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyTemplate marks the single template installed for a company.
// The unique index on company_id is what actually prevents a second install.
type CompanyTemplate struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	CompanyID   uuid.UUID `gorm:"type:text;not null;uniqueIndex" json:"company_id"`
	TemplateID  uuid.UUID `gorm:"type:text;not null;index" json:"template_id"`
	Template    *Template `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	InstalledAt time.Time `gorm:"not null" json:"installed_at"`
}

// BeforeCreate hook to generate UUID
func (c *CompanyTemplate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.InstalledAt.IsZero() {
		c.InstalledAt = tx.NowFunc()
	}
	return nil
}

// CompanyInstalledModule records that a module is installed for a company.
// Its presence is the only source of truth for "is module X installed".
type CompanyInstalledModule struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	CompanyID   uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_company_module" json:"company_id"`
	ModuleID    uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_company_module" json:"module_id"`
	Module      *Module   `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
	InstalledAt time.Time `gorm:"not null" json:"installed_at"`
}

// BeforeCreate hook to generate UUID
func (c *CompanyInstalledModule) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.InstalledAt.IsZero() {
		c.InstalledAt = tx.NowFunc()
	}
	return nil
}
