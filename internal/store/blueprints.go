package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/models"
	"gorm.io/gorm"
)

func preloadModuleTree(q *gorm.DB, prefix string) *gorm.DB {
	return q.
		Preload(prefix + "BlueprintObjects").
		Preload(prefix + "BlueprintObjects.Fields").
		Preload(prefix + "BlueprintAssociations")
}

// ListTemplates returns all templates with their modules but without
// blueprint objects.
func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	err := s.with(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, name ASC")
		}).
		Order("slug ASC").
		Find(&templates).Error
	if err != nil {
		return nil, wrap("listing templates", err)
	}
	return templates, nil
}

// FindTemplateBySlug returns a template without its modules.
func (s *Store) FindTemplateBySlug(ctx context.Context, slug string) (*models.Template, error) {
	var t models.Template
	if err := s.with(ctx).Where("slug = ?", slug).First(&t).Error; err != nil {
		return nil, wrap("finding template", err)
	}
	return &t, nil
}

// FindTemplateByID returns a template without its modules.
func (s *Store) FindTemplateByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var t models.Template
	if err := s.with(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, wrap("finding template", err)
	}
	return &t, nil
}

// FindTemplateBySlugWithFullTree loads a template with every module, blueprint
// object, field and association.
func (s *Store) FindTemplateBySlugWithFullTree(ctx context.Context, slug string) (*models.Template, error) {
	var t models.Template
	q := preloadModuleTree(s.with(ctx).Preload("Modules"), "Modules.")
	if err := q.Where("slug = ?", slug).First(&t).Error; err != nil {
		return nil, wrap("finding template", err)
	}
	return &t, nil
}

// FindModuleWithBlueprints loads one module of a template, by slug, with its
// blueprint objects, fields and associations.
func (s *Store) FindModuleWithBlueprints(ctx context.Context, templateID uuid.UUID, slug string) (*models.Module, error) {
	var m models.Module
	err := preloadModuleTree(s.with(ctx), "").
		Where("template_id = ? AND slug = ?", templateID, slug).
		First(&m).Error
	if err != nil {
		return nil, wrap("finding module", err)
	}
	return &m, nil
}

// CreateTemplateTree inserts a template together with its nested modules and
// blueprints.
func (s *Store) CreateTemplateTree(ctx context.Context, t *models.Template) error {
	return wrap("creating template", s.with(ctx).Create(t).Error)
}

// ReplaceTemplateModules deletes every module (and its blueprints) of a
// template and inserts the given ones. Callers must ensure no company has the
// template installed.
func (s *Store) ReplaceTemplateModules(ctx context.Context, t *models.Template, modules []models.Module) error {
	q := s.with(ctx)

	moduleIDs := q.Model(&models.Module{}).Select("id").Where("template_id = ?", t.ID)
	objectIDs := q.Model(&models.BlueprintObject{}).Select("id").Where("module_id IN (?)", moduleIDs)

	if err := q.Where("blueprint_object_id IN (?)", objectIDs).Delete(&models.BlueprintField{}).Error; err != nil {
		return wrap("deleting blueprint fields", err)
	}
	if err := q.Where("module_id IN (?)", moduleIDs).Delete(&models.BlueprintObject{}).Error; err != nil {
		return wrap("deleting blueprint objects", err)
	}
	if err := q.Where("module_id IN (?)", moduleIDs).Delete(&models.BlueprintAssociation{}).Error; err != nil {
		return wrap("deleting blueprint associations", err)
	}
	if err := q.Where("template_id = ?", t.ID).Delete(&models.Module{}).Error; err != nil {
		return wrap("deleting modules", err)
	}

	err := q.Model(&models.Template{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
		"name":        t.Name,
		"description": t.Description,
		"icon":        t.Icon,
		"is_active":   t.IsActive,
	}).Error
	if err != nil {
		return wrap("updating template", err)
	}

	for i := range modules {
		modules[i].TemplateID = t.ID
		if err := q.Create(&modules[i]).Error; err != nil {
			return wrap("creating module", err)
		}
	}
	return nil
}
