package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/store"
)

// Ledger answers "what is installed for this company". It only reads; the
// rows it reports are written by the stamping and uninstall paths.
type Ledger struct {
	store *store.Store
}

// NewLedger creates a Ledger over a store (or an open transaction).
func NewLedger(s *store.Store) *Ledger {
	return &Ledger{store: s}
}

// HasTemplate reports whether the company has a template installed.
func (l *Ledger) HasTemplate(ctx context.Context, companyID uuid.UUID) (bool, error) {
	ct, err := l.store.FindCompanyTemplate(ctx, companyID)
	if err != nil {
		return false, err
	}
	return ct != nil, nil
}

// FindByCompanyID returns the company's template marker, or nil.
func (l *Ledger) FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.CompanyTemplate, error) {
	return l.store.FindCompanyTemplate(ctx, companyID)
}

// IsModuleInstalled reports whether the module is installed for the company.
func (l *Ledger) IsModuleInstalled(ctx context.Context, companyID, moduleID uuid.UUID) (bool, error) {
	return l.store.IsModuleInstalled(ctx, companyID, moduleID)
}

// InstalledModules returns the installed modules, ordered for display.
func (l *Ledger) InstalledModules(ctx context.Context, companyID uuid.UUID) ([]models.Module, error) {
	return l.store.ListInstalledModules(ctx, companyID)
}

// InstalledModuleSlugs returns the slugs of the installed modules.
func (l *Ledger) InstalledModuleSlugs(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	modules, err := l.store.ListInstalledModules(ctx, companyID)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(modules))
	for i, m := range modules {
		slugs[i] = m.Slug
	}
	return slugs, nil
}
