package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/models"
)

// FindCompanyTemplate returns the company's installation marker, or nil.
func (s *Store) FindCompanyTemplate(ctx context.Context, companyID uuid.UUID) (*models.CompanyTemplate, error) {
	var ct models.CompanyTemplate
	err := s.with(ctx).Preload("Template").Where("company_id = ?", companyID).First(&ct).Error
	if err != nil {
		err = wrap("finding company template", err)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ct, nil
}

// CreateCompanyTemplate records the template installed for a company.
// A second row for the same company fails with db.ErrDuplicate.
func (s *Store) CreateCompanyTemplate(ctx context.Context, ct *models.CompanyTemplate) error {
	return wrap("creating company template", s.with(ctx).Create(ct).Error)
}

// CountCompanyTemplates counts installations of a template across companies.
func (s *Store) CountCompanyTemplates(ctx context.Context, templateID uuid.UUID) (int64, error) {
	var count int64
	err := s.with(ctx).Model(&models.CompanyTemplate{}).Where("template_id = ?", templateID).Count(&count).Error
	if err != nil {
		return 0, wrap("counting company templates", err)
	}
	return count, nil
}

// CreateInstalledModule records a module as installed for a company.
// A duplicate (company, module) pair fails with db.ErrDuplicate.
func (s *Store) CreateInstalledModule(ctx context.Context, m *models.CompanyInstalledModule) error {
	return wrap("creating installed module", s.with(ctx).Create(m).Error)
}

// DeleteInstalledModule removes a module from the company's ledger.
func (s *Store) DeleteInstalledModule(ctx context.Context, companyID, moduleID uuid.UUID) (int64, error) {
	res := s.with(ctx).
		Where("company_id = ? AND module_id = ?", companyID, moduleID).
		Delete(&models.CompanyInstalledModule{})
	if res.Error != nil {
		return 0, wrap("deleting installed module", res.Error)
	}
	return res.RowsAffected, nil
}

// IsModuleInstalled reports whether the ledger has a row for (company, module).
func (s *Store) IsModuleInstalled(ctx context.Context, companyID, moduleID uuid.UUID) (bool, error) {
	var count int64
	err := s.with(ctx).Model(&models.CompanyInstalledModule{}).
		Where("company_id = ? AND module_id = ?", companyID, moduleID).
		Count(&count).Error
	if err != nil {
		return false, wrap("checking installed module", err)
	}
	return count > 0, nil
}

// ListInstalledModules returns the modules installed for a company ordered
// by display order then name.
func (s *Store) ListInstalledModules(ctx context.Context, companyID uuid.UUID) ([]models.Module, error) {
	var modules []models.Module
	err := s.with(ctx).
		Joins("JOIN company_installed_modules cim ON cim.module_id = modules.id").
		Where("cim.company_id = ?", companyID).
		Order("modules.display_order ASC, modules.name ASC").
		Find(&modules).Error
	if err != nil {
		return nil, wrap("listing installed modules", err)
	}
	return modules, nil
}
