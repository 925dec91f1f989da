package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/audit"
	"github.com/nebari-dev/crmkit/internal/metrics"
	"github.com/nebari-dev/crmkit/internal/store"
)

// UninstallModule removes a non-core module from a company. When records of
// the module's object types exist and force is false, nothing is deleted and
// the result reports how many records would be lost.
func (s *InstallationService) UninstallModule(ctx context.Context, companyID uuid.UUID, moduleSlug string, force bool, actorID *uuid.UUID) (result *UninstallResult, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpUninstallModule, start, err) }()

	ct, err := s.ledger.FindByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, notFound("company has no template installed")
	}

	module, err := s.store.FindModuleWithBlueprints(ctx, ct.TemplateID, moduleSlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(fmt.Sprintf("module %s not found", moduleSlug))
		}
		return nil, err
	}

	if module.IsCore {
		return nil, badRequest(fmt.Sprintf("module %s is a core module and cannot be uninstalled", module.Slug))
	}

	installed, err := s.ledger.IsModuleInstalled(ctx, companyID, module.ID)
	if err != nil {
		return nil, err
	}
	if !installed {
		return nil, badRequest(fmt.Sprintf("module %s is not installed", module.Slug))
	}

	installedModules, err := s.ledger.InstalledModules(ctx, companyID)
	if err != nil {
		return nil, err
	}
	var dependents []string
	for _, m := range installedModules {
		if m.ID == module.ID {
			continue
		}
		for _, dep := range m.DependsOn {
			if dep == module.Slug {
				dependents = append(dependents, m.Slug)
				break
			}
		}
	}
	if len(dependents) > 0 {
		sort.Strings(dependents)
		return nil, badRequest(fmt.Sprintf("module %s is required by installed modules: %s", module.Slug, strings.Join(dependents, ", ")))
	}

	objectOrigins := make([]uuid.UUID, 0, len(module.BlueprintObjects))
	for _, bo := range module.BlueprintObjects {
		objectOrigins = append(objectOrigins, bo.ID)
	}
	assocOrigins := make([]uuid.UUID, 0, len(module.BlueprintAssociations))
	for _, ba := range module.BlueprintAssociations {
		assocOrigins = append(assocOrigins, ba.ID)
	}

	objectTypes, err := s.store.FindObjectTypesByOrigin(ctx, companyID, objectOrigins)
	if err != nil {
		return nil, err
	}
	assocTypes, err := s.store.FindAssociationTypesByOrigin(ctx, companyID, assocOrigins)
	if err != nil {
		return nil, err
	}
	objectTypeIDs := make([]uuid.UUID, len(objectTypes))
	for i, ot := range objectTypes {
		objectTypeIDs[i] = ot.ID
	}
	assocTypeIDs := make([]uuid.UUID, len(assocTypes))
	for i, at := range assocTypes {
		assocTypeIDs[i] = at.ID
	}

	records, err := s.store.CountObjects(ctx, companyID, objectTypeIDs)
	if err != nil {
		return nil, err
	}

	if records > 0 && !force {
		audit.LogAction(s.store.DB(), actorID, companyID, audit.ActionUninstallReported, "module:"+module.Slug, map[string]interface{}{
			"records": records,
		})
		slog.Warn("Module uninstall needs force",
			"company_id", companyID, "module", module.Slug, "records", records)
		return &UninstallResult{
			Outcome:      UninstallReported,
			Message:      fmt.Sprintf("module %s has %d records that will be deleted; retry with force to uninstall", module.Slug, records),
			DeletedCount: records,
		}, nil
	}

	var deleted int64
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := tx.DeleteObjectAssociations(ctx, companyID, assocTypeIDs, objectTypeIDs); err != nil {
			return err
		}
		n, err := tx.DeleteObjects(ctx, companyID, objectTypeIDs)
		if err != nil {
			return err
		}
		deleted = n
		if _, err := tx.DeleteObjectFields(ctx, companyID, objectTypeIDs); err != nil {
			return err
		}
		if _, err := tx.DeleteObjectTypes(ctx, companyID, objectTypeIDs); err != nil {
			return err
		}
		if _, err := tx.DeleteAssociationTypes(ctx, companyID, assocTypeIDs); err != nil {
			return err
		}
		_, err = tx.DeleteInstalledModule(ctx, companyID, module.ID)
		return err
	})
	if err != nil {
		slog.Warn("Module uninstall rolled back",
			"company_id", companyID, "module", module.Slug, "error", err)
		return nil, err
	}

	s.invalidate(ctx, companyID)
	metrics.AddRemovedRecords(deleted)
	audit.LogAction(s.store.DB(), actorID, companyID, audit.ActionUninstallModule, "module:"+module.Slug, map[string]interface{}{
		"force":             force,
		"deleted":           deleted,
		"object_types":      len(objectTypeIDs),
		"association_types": len(assocTypeIDs),
	})
	slog.Info("Module uninstalled",
		"company_id", companyID,
		"module", module.Slug,
		"records_deleted", deleted,
		"object_types", len(objectTypeIDs),
		"association_types", len(assocTypeIDs))

	return &UninstallResult{
		Outcome:      UninstallRemoved,
		Message:      fmt.Sprintf("module %s uninstalled", module.Slug),
		DeletedCount: deleted,
	}, nil
}
