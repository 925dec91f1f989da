package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/models"
)

// CreateObjectType inserts a live object type.
func (s *Store) CreateObjectType(ctx context.Context, o *models.ObjectType) error {
	return wrap("creating object type", s.with(ctx).Create(o).Error)
}

// CreateObjectField inserts a live field definition.
func (s *Store) CreateObjectField(ctx context.Context, f *models.ObjectField) error {
	return wrap("creating object field", s.with(ctx).Create(f).Error)
}

// CreateAssociationType inserts a live association type.
func (s *Store) CreateAssociationType(ctx context.Context, a *models.AssociationType) error {
	return wrap("creating association type", s.with(ctx).Create(a).Error)
}

// FindObjectTypesByAPINames returns the company's object types whose api
// name is in apiNames.
func (s *Store) FindObjectTypesByAPINames(ctx context.Context, companyID uuid.UUID, apiNames []string) ([]models.ObjectType, error) {
	if len(apiNames) == 0 {
		return nil, nil
	}
	var types []models.ObjectType
	err := s.with(ctx).
		Where("company_id = ? AND api_name IN ?", companyID, apiNames).
		Find(&types).Error
	if err != nil {
		return nil, wrap("finding object types", err)
	}
	return types, nil
}

// FindObjectTypesByOrigin returns the company's object types stamped from
// any of the given blueprint objects.
func (s *Store) FindObjectTypesByOrigin(ctx context.Context, companyID uuid.UUID, originIDs []uuid.UUID) ([]models.ObjectType, error) {
	if len(originIDs) == 0 {
		return nil, nil
	}
	var types []models.ObjectType
	err := s.with(ctx).
		Where("company_id = ? AND template_origin_id IN ?", companyID, originIDs).
		Find(&types).Error
	if err != nil {
		return nil, wrap("finding object types by origin", err)
	}
	return types, nil
}

// FindAssociationTypesByOrigin returns the company's association types
// stamped from any of the given blueprint associations.
func (s *Store) FindAssociationTypesByOrigin(ctx context.Context, companyID uuid.UUID, originIDs []uuid.UUID) ([]models.AssociationType, error) {
	if len(originIDs) == 0 {
		return nil, nil
	}
	var types []models.AssociationType
	err := s.with(ctx).
		Where("company_id = ? AND template_origin_id IN ?", companyID, originIDs).
		Find(&types).Error
	if err != nil {
		return nil, wrap("finding association types by origin", err)
	}
	return types, nil
}

// ListObjectTypes returns every object type of a company.
func (s *Store) ListObjectTypes(ctx context.Context, companyID uuid.UUID) ([]models.ObjectType, error) {
	var types []models.ObjectType
	if err := s.with(ctx).Where("company_id = ?", companyID).Order("api_name ASC").Find(&types).Error; err != nil {
		return nil, wrap("listing object types", err)
	}
	return types, nil
}

// ListObjectFields returns the field definitions of an object type.
func (s *Store) ListObjectFields(ctx context.Context, objectTypeID uuid.UUID) ([]models.ObjectField, error) {
	var fields []models.ObjectField
	if err := s.with(ctx).Where("object_type_id = ?", objectTypeID).Order("api_name ASC").Find(&fields).Error; err != nil {
		return nil, wrap("listing object fields", err)
	}
	return fields, nil
}

// ListAssociationTypes returns every association type of a company.
func (s *Store) ListAssociationTypes(ctx context.Context, companyID uuid.UUID) ([]models.AssociationType, error) {
	var types []models.AssociationType
	if err := s.with(ctx).Where("company_id = ?", companyID).Order("api_name ASC").Find(&types).Error; err != nil {
		return nil, wrap("listing association types", err)
	}
	return types, nil
}

// CreateObject inserts a live record.
func (s *Store) CreateObject(ctx context.Context, o *models.CrmObject) error {
	return wrap("creating object", s.with(ctx).Create(o).Error)
}

// CreateObjectAssociation inserts a live link between two records.
func (s *Store) CreateObjectAssociation(ctx context.Context, a *models.ObjectAssociation) error {
	return wrap("creating object association", s.with(ctx).Create(a).Error)
}

// CountObjects counts the company's records of the given object types.
func (s *Store) CountObjects(ctx context.Context, companyID uuid.UUID, objectTypeIDs []uuid.UUID) (int64, error) {
	if len(objectTypeIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := s.with(ctx).Model(&models.CrmObject{}).
		Where("company_id = ? AND object_type_id IN ?", companyID, objectTypeIDs).
		Count(&count).Error
	if err != nil {
		return 0, wrap("counting objects", err)
	}
	return count, nil
}

// DeleteObjectAssociations removes record links that use one of the
// association types, or whose source or target is a record of one of the
// object types.
func (s *Store) DeleteObjectAssociations(ctx context.Context, companyID uuid.UUID, associationTypeIDs, objectTypeIDs []uuid.UUID) (int64, error) {
	if len(associationTypeIDs) == 0 && len(objectTypeIDs) == 0 {
		return 0, nil
	}
	q := s.with(ctx)

	var clauses []string
	var args []interface{}
	if len(associationTypeIDs) > 0 {
		clauses = append(clauses, "association_type_id IN ?")
		args = append(args, associationTypeIDs)
	}
	if len(objectTypeIDs) > 0 {
		records := q.Model(&models.CrmObject{}).Select("id").
			Where("company_id = ? AND object_type_id IN ?", companyID, objectTypeIDs)
		clauses = append(clauses, "source_object_id IN (?)", "target_object_id IN (?)")
		args = append(args, records, records)
	}

	res := q.Where("company_id = ?", companyID).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Delete(&models.ObjectAssociation{})
	if res.Error != nil {
		return 0, wrap("deleting object associations", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteObjects removes the company's records of the given object types.
func (s *Store) DeleteObjects(ctx context.Context, companyID uuid.UUID, objectTypeIDs []uuid.UUID) (int64, error) {
	if len(objectTypeIDs) == 0 {
		return 0, nil
	}
	res := s.with(ctx).
		Where("company_id = ? AND object_type_id IN ?", companyID, objectTypeIDs).
		Delete(&models.CrmObject{})
	if res.Error != nil {
		return 0, wrap("deleting objects", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteObjectFields removes the field definitions of the given object types.
func (s *Store) DeleteObjectFields(ctx context.Context, companyID uuid.UUID, objectTypeIDs []uuid.UUID) (int64, error) {
	if len(objectTypeIDs) == 0 {
		return 0, nil
	}
	res := s.with(ctx).
		Where("company_id = ? AND object_type_id IN ?", companyID, objectTypeIDs).
		Delete(&models.ObjectField{})
	if res.Error != nil {
		return 0, wrap("deleting object fields", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteObjectTypes removes object type definitions by id.
func (s *Store) DeleteObjectTypes(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.with(ctx).Where("company_id = ? AND id IN ?", companyID, ids).Delete(&models.ObjectType{})
	if res.Error != nil {
		return 0, wrap("deleting object types", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAssociationTypes removes association type definitions by id.
func (s *Store) DeleteAssociationTypes(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.with(ctx).Where("company_id = ? AND id IN ?", companyID, ids).Delete(&models.AssociationType{})
	if res.Error != nil {
		return 0, wrap("deleting association types", res.Error)
	}
	return res.RowsAffected, nil
}
