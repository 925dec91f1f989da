package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/audit"
	"github.com/nebari-dev/crmkit/internal/db"
	"github.com/nebari-dev/crmkit/internal/models"
)

// CreateCompany registers a new tenant.
func (s *InstallationService) CreateCompany(ctx context.Context, name, slug string, actorID *uuid.UUID) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, badRequest("company name is required")
	}
	if slug == "" {
		slug = slugify(name)
	}
	c := &models.Company{Name: name, Slug: slug}
	if err := s.store.CreateCompany(ctx, c); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflict(fmt.Sprintf("company %s already exists", slug))
		}
		return nil, err
	}
	audit.LogAction(s.store.DB(), actorID, c.ID, audit.ActionCreateCompany, "company:"+c.Slug, nil)
	slog.Info("Company created", "company_id", c.ID, "slug", c.Slug)
	return c, nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ListCompanies returns every tenant.
func (s *InstallationService) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return s.store.ListCompanies(ctx)
}

// ListTemplates returns the blueprint catalog with module summaries.
func (s *InstallationService) ListTemplates(ctx context.Context) ([]models.Template, error) {
	return s.store.ListTemplates(ctx)
}
