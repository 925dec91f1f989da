package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/models"
)

// FieldSummary describes one live field of an object type.
type FieldSummary struct {
	Name       string            `json:"name"`
	APIName    string            `json:"api_name"`
	FieldType  string            `json:"field_type"`
	IsRequired bool              `json:"is_required"`
	Protection models.Protection `json:"protection"`
}

// ObjectTypeSummary describes one live object type and its fields.
type ObjectTypeSummary struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	APIName    string            `json:"api_name"`
	Protection models.Protection `json:"protection"`
	Stamped    bool              `json:"stamped"`
	Fields     []FieldSummary    `json:"fields"`
}

// AssociationTypeSummary describes one live association type, with object
// types referenced by api name.
type AssociationTypeSummary struct {
	Name              string             `json:"name"`
	APIName           string             `json:"api_name"`
	Source            string             `json:"source"`
	Target            string             `json:"target"`
	SourceCardinality models.Cardinality `json:"source_cardinality"`
	TargetCardinality models.Cardinality `json:"target_cardinality"`
	IsBidirectional   bool               `json:"is_bidirectional"`
}

// CompanySchema is the live schema of a company.
type CompanySchema struct {
	ObjectTypes      []ObjectTypeSummary      `json:"object_types"`
	AssociationTypes []AssociationTypeSummary `json:"association_types"`
}

// GetCompanySchema returns the company's live object types, fields and
// association types, whether stamped from blueprints or not.
func (s *InstallationService) GetCompanySchema(ctx context.Context, companyID uuid.UUID) (*CompanySchema, error) {
	if err := s.requireCompany(ctx, companyID); err != nil {
		return nil, err
	}

	types, err := s.store.ListObjectTypes(ctx, companyID)
	if err != nil {
		return nil, err
	}
	schema := &CompanySchema{
		ObjectTypes:      make([]ObjectTypeSummary, 0, len(types)),
		AssociationTypes: []AssociationTypeSummary{},
	}
	apiNames := make(map[uuid.UUID]string, len(types))
	for _, ot := range types {
		apiNames[ot.ID] = ot.APIName

		fields, err := s.store.ListObjectFields(ctx, ot.ID)
		if err != nil {
			return nil, err
		}
		summary := ObjectTypeSummary{
			ID:         ot.ID,
			Name:       ot.Name,
			APIName:    ot.APIName,
			Protection: ot.Protection,
			Stamped:    ot.TemplateOriginID != nil,
			Fields:     make([]FieldSummary, 0, len(fields)),
		}
		for _, f := range fields {
			summary.Fields = append(summary.Fields, FieldSummary{
				Name:       f.Name,
				APIName:    f.APIName,
				FieldType:  f.FieldType,
				IsRequired: f.IsRequired,
				Protection: f.Protection,
			})
		}
		schema.ObjectTypes = append(schema.ObjectTypes, summary)
	}

	assocs, err := s.store.ListAssociationTypes(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, at := range assocs {
		schema.AssociationTypes = append(schema.AssociationTypes, AssociationTypeSummary{
			Name:              at.Name,
			APIName:           at.APIName,
			Source:            apiNames[at.SourceObjectTypeID],
			Target:            apiNames[at.TargetObjectTypeID],
			SourceCardinality: at.SourceCardinality,
			TargetCardinality: at.TargetCardinality,
			IsBidirectional:   at.IsBidirectional,
		})
	}
	return schema, nil
}
