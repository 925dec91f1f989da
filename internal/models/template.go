package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Protection limits what tenant-side operations may do to a stamped entity.
// Uninstallation ignores it.
type Protection string

const (
	ProtectionNone            Protection = "none"
	ProtectionDeleteProtected Protection = "delete_protected"
	ProtectionFull            Protection = "full"
)

// Valid reports whether p is a known protection level.
func (p Protection) Valid() bool {
	switch p {
	case ProtectionNone, ProtectionDeleteProtected, ProtectionFull:
		return true
	}
	return false
}

// Cardinality is the maximum count on one side of an association type.
type Cardinality string

const (
	CardinalityOne  Cardinality = "ONE"
	CardinalityMany Cardinality = "MANY"
)

// Valid reports whether c is a known cardinality.
func (c Cardinality) Valid() bool {
	return c == CardinalityOne || c == CardinalityMany
}

// Template is a catalog entry bundling one or more modules.
// It carries no company reference; installations live in CompanyTemplate.
type Template struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `json:"icon"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	Modules     []Module  `gorm:"foreignKey:TemplateID" json:"modules,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Module is a named group of blueprints with dependency and conflict
// constraints relative to other modules of the same template.
type Module struct {
	ID                    uuid.UUID              `gorm:"type:text;primary_key" json:"id"`
	TemplateID            uuid.UUID              `gorm:"type:text;not null;uniqueIndex:idx_template_module_slug" json:"template_id"`
	Name                  string                 `gorm:"not null" json:"name"`
	Slug                  string                 `gorm:"not null;uniqueIndex:idx_template_module_slug" json:"slug"`
	Description           string                 `gorm:"type:text" json:"description"`
	IsCore                bool                   `gorm:"not null;default:false" json:"is_core"`
	DependsOn             []string               `gorm:"serializer:json" json:"depends_on"`
	ConflictsWith         []string               `gorm:"serializer:json" json:"conflicts_with"`
	DisplayOrder          int                    `gorm:"not null;default:0" json:"display_order"`
	BlueprintObjects      []BlueprintObject      `gorm:"foreignKey:ModuleID" json:"blueprint_objects,omitempty"`
	BlueprintAssociations []BlueprintAssociation `gorm:"foreignKey:ModuleID" json:"blueprint_associations,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (m *Module) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
