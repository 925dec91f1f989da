package blueprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/audit"
	"github.com/nebari-dev/crmkit/internal/store"
)

// SyncAction is what Sync did with a definition.
type SyncAction string

const (
	SyncCreated SyncAction = "created"
	SyncUpdated SyncAction = "updated"
	// SyncSkipped means the template is installed by at least one company.
	// Installed schemas are never migrated, so the catalog entry is left as is.
	SyncSkipped SyncAction = "skipped"
)

// SyncResult reports the outcome for one template.
type SyncResult struct {
	Slug   string     `json:"slug"`
	Action SyncAction `json:"action"`
	Source string     `json:"source,omitempty"`
}

// Sync upserts a definition into the catalog by slug.
func Sync(ctx context.Context, st *store.Store, def *Definition) (*SyncResult, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	result := &SyncResult{Slug: def.Slug, Source: def.Source}
	tmpl := def.ToModel()

	err := st.Transaction(ctx, func(tx *store.Store) error {
		existing, err := tx.FindTemplateBySlug(ctx, def.Slug)
		if errors.Is(err, store.ErrNotFound) {
			result.Action = SyncCreated
			return tx.CreateTemplateTree(ctx, tmpl)
		}
		if err != nil {
			return err
		}

		installs, err := tx.CountCompanyTemplates(ctx, existing.ID)
		if err != nil {
			return err
		}
		if installs > 0 {
			result.Action = SyncSkipped
			slog.Warn("Template is installed, skipping blueprint sync",
				"template", def.Slug, "installations", installs, "source", def.Source)
			return nil
		}

		tmpl.ID = existing.ID
		result.Action = SyncUpdated
		return tx.ReplaceTemplateModules(ctx, tmpl, tmpl.Modules)
	})
	if err != nil {
		return nil, fmt.Errorf("sync template %s: %w", def.Slug, err)
	}

	if result.Action != SyncSkipped {
		audit.LogAction(st.DB(), nil, uuid.Nil, audit.ActionSyncTemplate, "template:"+def.Slug, map[string]interface{}{
			"action": result.Action,
			"source": def.Source,
		})
	}
	slog.Info("Blueprint synced", "template", def.Slug, "action", result.Action, "modules", len(def.Modules))
	return result, nil
}

// SyncDir loads and syncs every definition under dir. It stops at the first
// file that fails to load, validate or sync.
func SyncDir(ctx context.Context, st *store.Store, dir, pattern string) ([]SyncResult, error) {
	paths, err := Discover(dir, pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		slog.Info("No blueprint definitions found", "dir", dir)
		return nil, nil
	}

	results := make([]SyncResult, 0, len(paths))
	for _, path := range paths {
		def, err := LoadFile(path)
		if err != nil {
			return results, err
		}
		res, err := Sync(ctx, st, def)
		if err != nil {
			return results, fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, *res)
	}
	return results, nil
}
