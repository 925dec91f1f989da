package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/db"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/store"
)

// StampResult tallies the live entities created by one stamping run.
type StampResult struct {
	InstalledModules    []string
	CreatedObjectTypes  int
	CreatedFields       int
	CreatedAssociations int
}

// Stamper turns blueprints into live, company-scoped schema entities.
// It must be used with a transactional Store: a failure part way leaves
// writes behind that only the surrounding rollback removes.
type Stamper struct {
	tx        *store.Store
	companyID uuid.UUID
	// apiNames maps object api names to live object type ids. It spans the
	// whole module set so associations can reference objects of any module.
	apiNames map[string]uuid.UUID
}

// NewStamper creates a Stamper for one company. index seeds the api name
// resolution map with object types that already exist for the company.
func NewStamper(tx *store.Store, companyID uuid.UUID, index map[string]uuid.UUID) *Stamper {
	apiNames := make(map[string]uuid.UUID, len(index))
	for name, id := range index {
		apiNames[name] = id
	}
	return &Stamper{tx: tx, companyID: companyID, apiNames: apiNames}
}

// InstallModules stamps the ordered modules. Every module's objects and
// fields are created before any association, then associations and the
// ledger row are written module by module.
func (s *Stamper) InstallModules(ctx context.Context, ordered []*models.Module) (*StampResult, error) {
	result := &StampResult{InstalledModules: make([]string, 0, len(ordered))}

	for _, m := range ordered {
		for _, bo := range sortedObjects(m.BlueprintObjects) {
			fields, err := s.stampObject(ctx, bo)
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", m.Slug, err)
			}
			result.CreatedObjectTypes++
			result.CreatedFields += fields
		}
	}

	for _, m := range ordered {
		for _, ba := range sortedAssociations(m.BlueprintAssociations) {
			if err := s.stampAssociation(ctx, m, ba); err != nil {
				return nil, err
			}
			result.CreatedAssociations++
		}

		err := s.tx.CreateInstalledModule(ctx, &models.CompanyInstalledModule{
			CompanyID: s.companyID,
			ModuleID:  m.ID,
		})
		if err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return nil, conflict(fmt.Sprintf("module %s is already installed", m.Slug))
			}
			return nil, fmt.Errorf("record module %s: %w", m.Slug, err)
		}
		result.InstalledModules = append(result.InstalledModules, m.Slug)
	}

	return result, nil
}

func (s *Stamper) stampObject(ctx context.Context, bo *models.BlueprintObject) (int, error) {
	if _, exists := s.apiNames[bo.APIName]; exists {
		return 0, badRequest(fmt.Sprintf("object api name already exists: %s", bo.APIName))
	}

	originID := bo.ID
	ot := &models.ObjectType{
		CompanyID:        s.companyID,
		Name:             bo.Name,
		APIName:          bo.APIName,
		Description:      bo.Description,
		Icon:             bo.Icon,
		Protection:       protectionOrDefault(bo.Protection),
		TemplateOriginID: &originID,
	}
	if err := s.tx.CreateObjectType(ctx, ot); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return 0, conflict(fmt.Sprintf("object api name already exists: %s", bo.APIName))
		}
		return 0, fmt.Errorf("stamp object %s: %w", bo.APIName, err)
	}
	s.apiNames[bo.APIName] = ot.ID

	created := 0
	for _, bf := range sortedFields(bo.Fields) {
		fieldOrigin := bf.ID
		f := &models.ObjectField{
			CompanyID:        s.companyID,
			ObjectTypeID:     ot.ID,
			Name:             bf.Name,
			APIName:          bf.APIName,
			FieldType:        bf.FieldType,
			Shape:            bf.Shape,
			ConfigShape:      bf.ConfigShape,
			IsRequired:       bf.IsRequired,
			Protection:       protectionOrDefault(bf.Protection),
			TemplateOriginID: &fieldOrigin,
		}
		if err := s.tx.CreateObjectField(ctx, f); err != nil {
			return 0, fmt.Errorf("stamp field %s.%s: %w", bo.APIName, bf.APIName, err)
		}
		created++
	}
	return created, nil
}

func (s *Stamper) stampAssociation(ctx context.Context, m *models.Module, ba *models.BlueprintAssociation) error {
	sourceID, okSource := s.apiNames[ba.SourceObjectAPIName]
	targetID, okTarget := s.apiNames[ba.TargetObjectAPIName]
	if !okSource || !okTarget {
		var unresolved []string
		if !okSource {
			unresolved = append(unresolved, ba.SourceObjectAPIName)
		}
		if !okTarget && ba.TargetObjectAPIName != ba.SourceObjectAPIName {
			unresolved = append(unresolved, ba.TargetObjectAPIName)
		}
		return badRequest(fmt.Sprintf("association %s in module %s references unknown objects: %s", ba.APIName, m.Slug, strings.Join(unresolved, ", ")))
	}

	originID := ba.ID
	at := &models.AssociationType{
		CompanyID:          s.companyID,
		Name:               ba.Name,
		APIName:            ba.APIName,
		SourceObjectTypeID: sourceID,
		TargetObjectTypeID: targetID,
		SourceCardinality:  cardinalityOrDefault(ba.SourceCardinality),
		TargetCardinality:  cardinalityOrDefault(ba.TargetCardinality),
		IsBidirectional:    ba.IsBidirectional,
		Protection:         protectionOrDefault(ba.Protection),
		TemplateOriginID:   &originID,
	}
	if err := s.tx.CreateAssociationType(ctx, at); err != nil {
		return fmt.Errorf("stamp association %s: %w", ba.APIName, err)
	}
	return nil
}

func protectionOrDefault(p models.Protection) models.Protection {
	if p == "" {
		return models.ProtectionNone
	}
	return p
}

func cardinalityOrDefault(c models.Cardinality) models.Cardinality {
	if c == "" {
		return models.CardinalityMany
	}
	return c
}

func sortedObjects(in []models.BlueprintObject) []*models.BlueprintObject {
	out := make([]*models.BlueprintObject, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedFields(in []models.BlueprintField) []*models.BlueprintField {
	out := make([]*models.BlueprintField, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedAssociations(in []models.BlueprintAssociation) []*models.BlueprintAssociation {
	out := make([]*models.BlueprintAssociation, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}
