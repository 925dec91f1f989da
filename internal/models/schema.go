package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ObjectType is a live, company-scoped schema "table".
//
// TemplateOriginID points back at the BlueprintObject it was stamped from.
// It is a plain lookup key: no foreign key, no cascade.
type ObjectType struct {
	ID               uuid.UUID  `gorm:"type:text;primary_key" json:"id"`
	CompanyID        uuid.UUID  `gorm:"type:text;not null;uniqueIndex:idx_company_object_api_name" json:"company_id"`
	Name             string     `gorm:"not null" json:"name"`
	APIName          string     `gorm:"not null;uniqueIndex:idx_company_object_api_name" json:"api_name"`
	Description      string     `gorm:"type:text" json:"description"`
	Icon             string     `json:"icon"`
	Protection       Protection `gorm:"not null;default:'none'" json:"protection"`
	TemplateOriginID *uuid.UUID `gorm:"type:text;index" json:"template_origin_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (o *ObjectType) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ObjectField is a live field definition on an ObjectType.
type ObjectField struct {
	ID               uuid.UUID              `gorm:"type:text;primary_key" json:"id"`
	CompanyID        uuid.UUID              `gorm:"type:text;not null;index" json:"company_id"`
	ObjectTypeID     uuid.UUID              `gorm:"type:text;not null;uniqueIndex:idx_object_type_field_api_name" json:"object_type_id"`
	Name             string                 `gorm:"not null" json:"name"`
	APIName          string                 `gorm:"not null;uniqueIndex:idx_object_type_field_api_name" json:"api_name"`
	FieldType        string                 `gorm:"not null" json:"field_type"`
	Shape            map[string]interface{} `gorm:"serializer:json" json:"shape,omitempty"`
	ConfigShape      map[string]interface{} `gorm:"serializer:json" json:"config_shape,omitempty"`
	IsRequired       bool                   `gorm:"not null;default:false" json:"is_required"`
	Protection       Protection             `gorm:"not null;default:'none'" json:"protection"`
	TemplateOriginID *uuid.UUID             `gorm:"type:text;index" json:"template_origin_id,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (f *ObjectField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// AssociationType is a live relationship definition between two object types.
type AssociationType struct {
	ID                 uuid.UUID   `gorm:"type:text;primary_key" json:"id"`
	CompanyID          uuid.UUID   `gorm:"type:text;not null;index" json:"company_id"`
	Name               string      `gorm:"not null" json:"name"`
	APIName            string      `gorm:"not null" json:"api_name"`
	SourceObjectTypeID uuid.UUID   `gorm:"type:text;not null;index" json:"source_object_type_id"`
	TargetObjectTypeID uuid.UUID   `gorm:"type:text;not null;index" json:"target_object_type_id"`
	SourceCardinality  Cardinality `gorm:"not null" json:"source_cardinality"`
	TargetCardinality  Cardinality `gorm:"not null" json:"target_cardinality"`
	IsBidirectional    bool        `gorm:"not null;default:false" json:"is_bidirectional"`
	Protection         Protection  `gorm:"not null;default:'none'" json:"protection"`
	TemplateOriginID   *uuid.UUID  `gorm:"type:text;index" json:"template_origin_id,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (a *AssociationType) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CrmObject is a live record of some ObjectType.
type CrmObject struct {
	ID           uuid.UUID              `gorm:"type:text;primary_key" json:"id"`
	CompanyID    uuid.UUID              `gorm:"type:text;not null;index" json:"company_id"`
	ObjectTypeID uuid.UUID              `gorm:"type:text;not null;index" json:"object_type_id"`
	Data         map[string]interface{} `gorm:"serializer:json" json:"data"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (o *CrmObject) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ObjectAssociation links two records through an AssociationType.
type ObjectAssociation struct {
	ID                uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	CompanyID         uuid.UUID `gorm:"type:text;not null;index" json:"company_id"`
	AssociationTypeID uuid.UUID `gorm:"type:text;not null;index" json:"association_type_id"`
	SourceObjectID    uuid.UUID `gorm:"type:text;not null;index" json:"source_object_id"`
	TargetObjectID    uuid.UUID `gorm:"type:text;not null;index" json:"target_object_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (o *ObjectAssociation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
