package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/audit"
	"github.com/nebari-dev/crmkit/internal/cache"
	"github.com/nebari-dev/crmkit/internal/db"
	"github.com/nebari-dev/crmkit/internal/metrics"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/store"
)

// InstallationService installs templates and modules into companies and
// removes them again.
type InstallationService struct {
	store  *store.Store
	ledger *Ledger
	cache  cache.Cache
}

// New creates a new InstallationService. A nil cache disables caching.
func New(s *store.Store, c cache.Cache) *InstallationService {
	if c == nil {
		c = cache.Noop{}
	}
	return &InstallationService{store: s, ledger: NewLedger(s), cache: c}
}

// Ledger exposes the read-only installation ledger.
func (s *InstallationService) Ledger() *Ledger {
	return s.ledger
}

func (s *InstallationService) requireCompany(ctx context.Context, companyID uuid.UUID) error {
	if _, err := s.store.GetCompany(ctx, companyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(fmt.Sprintf("company %s not found", companyID))
		}
		return err
	}
	return nil
}

// InstallTemplate selects and orders the template's modules, stamps them and
// records the template for the company, all in one transaction.
func (s *InstallationService) InstallTemplate(ctx context.Context, req InstallTemplateRequest) (result *InstallationResult, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpInstallTemplate, start, err) }()

	if err := s.requireCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}

	tmpl, err := s.store.FindTemplateBySlugWithFullTree(ctx, req.TemplateSlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(fmt.Sprintf("template %s not found", req.TemplateSlug))
		}
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, badRequest(fmt.Sprintf("template %s is not active", tmpl.Slug))
	}

	// Fast-path check; the unique index on company_templates is what holds
	// under concurrent installs.
	has, err := s.ledger.HasTemplate(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, conflict("company already has a template installed")
	}

	ordered, err := ResolveTemplateSelection(tmpl.Modules, req.Modules, req.InstallAllModules)
	if err != nil {
		return nil, err
	}

	var stamped *StampResult
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		stamped, err = NewStamper(tx, req.CompanyID, nil).InstallModules(ctx, ordered)
		if err != nil {
			return err
		}
		err = tx.CreateCompanyTemplate(ctx, &models.CompanyTemplate{
			CompanyID:  req.CompanyID,
			TemplateID: tmpl.ID,
		})
		if errors.Is(err, db.ErrDuplicate) {
			return conflict("company already has a template installed")
		}
		return err
	})
	if err != nil {
		slog.Warn("Template install rolled back",
			"company_id", req.CompanyID, "template", tmpl.Slug, "error", err)
		return nil, err
	}

	s.invalidate(ctx, req.CompanyID)
	metrics.AddStamped(stamped.CreatedObjectTypes, stamped.CreatedFields, stamped.CreatedAssociations)
	audit.LogAction(s.store.DB(), req.ActorID, req.CompanyID, audit.ActionInstallTemplate, "template:"+tmpl.Slug, map[string]interface{}{
		"modules":              stamped.InstalledModules,
		"created_object_types": stamped.CreatedObjectTypes,
		"created_fields":       stamped.CreatedFields,
		"created_associations": stamped.CreatedAssociations,
	})
	slog.Info("Template installed",
		"company_id", req.CompanyID,
		"template", tmpl.Slug,
		"modules", stamped.InstalledModules,
		"object_types", stamped.CreatedObjectTypes,
		"fields", stamped.CreatedFields,
		"associations", stamped.CreatedAssociations)

	return newInstallationResult(tmpl.Slug, stamped), nil
}

// InstallModule adds one module to a company that already has its template.
func (s *InstallationService) InstallModule(ctx context.Context, companyID uuid.UUID, moduleSlug string, actorID *uuid.UUID) (result *InstallationResult, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpInstallModule, start, err) }()

	ct, err := s.ledger.FindByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if ct == nil || ct.Template == nil {
		return nil, notFound("company has no template installed")
	}

	module, err := s.store.FindModuleWithBlueprints(ctx, ct.TemplateID, moduleSlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(fmt.Sprintf("module %s not found in template %s", moduleSlug, ct.Template.Slug))
		}
		return nil, err
	}

	installed, err := s.ledger.IsModuleInstalled(ctx, companyID, module.ID)
	if err != nil {
		return nil, err
	}
	if installed {
		return nil, conflict(fmt.Sprintf("module %s is already installed", module.Slug))
	}

	installedModules, err := s.ledger.InstalledModules(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := ValidateIncremental(module, installedModules); err != nil {
		return nil, err
	}

	var stamped *StampResult
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		index, err := existingAPINameIndex(ctx, tx, companyID, module)
		if err != nil {
			return err
		}
		stamped, err = NewStamper(tx, companyID, index).InstallModules(ctx, []*models.Module{module})
		return err
	})
	if err != nil {
		slog.Warn("Module install rolled back",
			"company_id", companyID, "module", module.Slug, "error", err)
		return nil, err
	}

	s.invalidate(ctx, companyID)
	metrics.AddStamped(stamped.CreatedObjectTypes, stamped.CreatedFields, stamped.CreatedAssociations)
	audit.LogAction(s.store.DB(), actorID, companyID, audit.ActionInstallModule, "module:"+module.Slug, map[string]interface{}{
		"template":             ct.Template.Slug,
		"created_object_types": stamped.CreatedObjectTypes,
		"created_fields":       stamped.CreatedFields,
		"created_associations": stamped.CreatedAssociations,
	})
	slog.Info("Module installed",
		"company_id", companyID,
		"template", ct.Template.Slug,
		"module", module.Slug,
		"object_types", stamped.CreatedObjectTypes,
		"fields", stamped.CreatedFields,
		"associations", stamped.CreatedAssociations)

	return newInstallationResult(ct.Template.Slug, stamped), nil
}

// existingAPINameIndex seeds api name resolution for an incremental install
// with the company's existing object types. Any object the module would
// create that already exists is rejected rather than reused.
func existingAPINameIndex(ctx context.Context, tx *store.Store, companyID uuid.UUID, module *models.Module) (map[string]uuid.UUID, error) {
	own := make(map[string]bool, len(module.BlueprintObjects))
	var referenced []string
	for _, bo := range module.BlueprintObjects {
		own[bo.APIName] = true
		referenced = append(referenced, bo.APIName)
	}
	for _, ba := range module.BlueprintAssociations {
		referenced = append(referenced, ba.SourceObjectAPIName, ba.TargetObjectAPIName)
	}

	existing, err := tx.FindObjectTypesByAPINames(ctx, companyID, uniqueStrings(referenced))
	if err != nil {
		return nil, err
	}

	index := make(map[string]uuid.UUID, len(existing))
	var dupes []string
	for _, ot := range existing {
		if own[ot.APIName] {
			dupes = append(dupes, ot.APIName)
			continue
		}
		index[ot.APIName] = ot.ID
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return nil, badRequest(fmt.Sprintf("module %s would duplicate existing object api names: %s", module.Slug, strings.Join(dupes, ", ")))
	}
	return index, nil
}

// GetCompanyInstallation returns the company's template and installed modules.
// A company with nothing installed yields a nil Template and no modules.
func (s *InstallationService) GetCompanyInstallation(ctx context.Context, companyID uuid.UUID) (*CompanyInstallation, error) {
	key := cacheKey(companyID)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached CompanyInstallation
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	} else if err != nil {
		slog.Warn("Installation cache read failed", "company_id", companyID, "error", err)
	}

	inst := &CompanyInstallation{Modules: []ModuleSummary{}}

	ct, err := s.ledger.FindByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if ct != nil && ct.Template != nil {
		inst.Template = &TemplateSummary{
			ID:          ct.Template.ID,
			Name:        ct.Template.Name,
			Slug:        ct.Template.Slug,
			Description: ct.Template.Description,
			Icon:        ct.Template.Icon,
		}
	}

	modules, err := s.ledger.InstalledModules(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		inst.Modules = append(inst.Modules, ModuleSummary{
			ID:           m.ID,
			Name:         m.Name,
			Slug:         m.Slug,
			Description:  m.Description,
			IsCore:       m.IsCore,
			DisplayOrder: m.DisplayOrder,
		})
	}

	if raw, err := json.Marshal(inst); err == nil {
		if err := s.cache.Set(ctx, key, raw); err != nil {
			slog.Warn("Installation cache write failed", "company_id", companyID, "error", err)
		}
	}
	return inst, nil
}

func (s *InstallationService) invalidate(ctx context.Context, companyID uuid.UUID) {
	if err := s.cache.Delete(ctx, cacheKey(companyID)); err != nil {
		slog.Warn("Installation cache invalidation failed", "company_id", companyID, "error", err)
	}
}

func cacheKey(companyID uuid.UUID) string {
	return "installation:" + companyID.String()
}

func newInstallationResult(templateSlug string, stamped *StampResult) *InstallationResult {
	return &InstallationResult{
		Success:             true,
		TemplateSlug:        templateSlug,
		InstalledModules:    stamped.InstalledModules,
		CreatedObjectTypes:  stamped.CreatedObjectTypes,
		CreatedFields:       stamped.CreatedFields,
		CreatedAssociations: stamped.CreatedAssociations,
	}
}

// observe records an operation outcome label for metrics.
func observe(operation string, start time.Time, err error) {
	result := "success"
	var ve *ValidationError
	var ce *ConflictError
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.As(err, &ve):
		result = "bad_request"
	case errors.As(err, &ce):
		result = "conflict"
	default:
		result = "error"
	}
	metrics.ObserveOperation(operation, result, time.Since(start))
}
