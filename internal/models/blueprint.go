package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlueprintObject is the template for a live ObjectType.
type BlueprintObject struct {
	ID           uuid.UUID        `gorm:"type:text;primary_key" json:"id"`
	ModuleID     uuid.UUID        `gorm:"type:text;not null;uniqueIndex:idx_module_object_api_name" json:"module_id"`
	Name         string           `gorm:"not null" json:"name"`
	APIName      string           `gorm:"not null;uniqueIndex:idx_module_object_api_name" json:"api_name"`
	Description  string           `gorm:"type:text" json:"description"`
	Icon         string           `json:"icon"`
	Protection   Protection       `gorm:"not null;default:'none'" json:"protection"`
	DisplayOrder int              `gorm:"not null;default:0" json:"display_order"`
	Fields       []BlueprintField `gorm:"foreignKey:BlueprintObjectID" json:"fields,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (b *BlueprintObject) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BlueprintField is the template for a live ObjectField.
type BlueprintField struct {
	ID                uuid.UUID              `gorm:"type:text;primary_key" json:"id"`
	BlueprintObjectID uuid.UUID              `gorm:"type:text;not null;uniqueIndex:idx_object_field_api_name" json:"blueprint_object_id"`
	Name              string                 `gorm:"not null" json:"name"`
	APIName           string                 `gorm:"not null;uniqueIndex:idx_object_field_api_name" json:"api_name"`
	FieldType         string                 `gorm:"not null" json:"field_type"`
	Shape             map[string]interface{} `gorm:"serializer:json" json:"shape,omitempty"`
	ConfigShape       map[string]interface{} `gorm:"serializer:json" json:"config_shape,omitempty"`
	IsRequired        bool                   `gorm:"not null;default:false" json:"is_required"`
	Protection        Protection             `gorm:"not null;default:'none'" json:"protection"`
	DisplayOrder      int                    `gorm:"not null;default:0" json:"display_order"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (b *BlueprintField) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BlueprintAssociation is the template for a live AssociationType.
// Source and target are object api names, resolved at install time against
// the objects of the whole module set being installed.
type BlueprintAssociation struct {
	ID                  uuid.UUID   `gorm:"type:text;primary_key" json:"id"`
	ModuleID            uuid.UUID   `gorm:"type:text;not null;uniqueIndex:idx_module_assoc_api_name" json:"module_id"`
	Name                string      `gorm:"not null" json:"name"`
	APIName             string      `gorm:"not null;uniqueIndex:idx_module_assoc_api_name" json:"api_name"`
	SourceObjectAPIName string      `gorm:"not null" json:"source_object_api_name"`
	TargetObjectAPIName string      `gorm:"not null" json:"target_object_api_name"`
	SourceCardinality   Cardinality `gorm:"not null;default:'MANY'" json:"source_cardinality"`
	TargetCardinality   Cardinality `gorm:"not null;default:'MANY'" json:"target_cardinality"`
	IsBidirectional     bool        `gorm:"not null;default:false" json:"is_bidirectional"`
	Protection          Protection  `gorm:"not null;default:'none'" json:"protection"`
	DisplayOrder        int         `gorm:"not null;default:0" json:"display_order"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (b *BlueprintAssociation) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
