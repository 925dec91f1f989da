package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/cache"
	"github.com/nebari-dev/crmkit/internal/db"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testSetup opens a fresh sqlite database, migrates it and returns an
// InstallationService backed by an in-memory cache.
func testSetup(t *testing.T) (*InstallationService, *gorm.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := cache.NewMemoryCache(0)
	t.Cleanup(func() { c.Close() })

	return New(store.New(gdb), c), gdb
}

func createCompany(t *testing.T, svc *InstallationService, name string) uuid.UUID {
	t.Helper()
	c, err := svc.CreateCompany(context.Background(), name, "", nil)
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c.ID
}

func createTemplate(t *testing.T, gdb *gorm.DB, tmpl *models.Template) *models.Template {
	t.Helper()
	if err := store.New(gdb).CreateTemplateTree(context.Background(), tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tmpl
}

func object(apiName string, fields ...string) models.BlueprintObject {
	bo := models.BlueprintObject{Name: apiName, APIName: apiName}
	for i, f := range fields {
		bo.Fields = append(bo.Fields, models.BlueprintField{
			Name: f, APIName: f, FieldType: "text", DisplayOrder: i,
		})
	}
	return bo
}

func association(apiName, source, target string) models.BlueprintAssociation {
	return models.BlueprintAssociation{
		Name: apiName, APIName: apiName,
		SourceObjectAPIName: source, TargetObjectAPIName: target,
	}
}

// salesTemplate builds a template exercising dependencies, conflicts and
// cross-module associations:
//
//	core (core)        _contact, _account
//	deals -> core      _deal, deal_contact(_deal->_contact)
//	reporting -> deals _report
//	marketing x legacy _campaign
//	legacy             _newsletter
func salesTemplate() *models.Template {
	core := models.Module{
		Name: "Core", Slug: "core", IsCore: true, DisplayOrder: 0,
		BlueprintObjects: []models.BlueprintObject{
			object("_contact", "email", "phone"),
			object("_account", "domain"),
		},
		BlueprintAssociations: []models.BlueprintAssociation{
			association("contact_account", "_contact", "_account"),
		},
	}
	deals := models.Module{
		Name: "Deals", Slug: "deals", DependsOn: []string{"core"}, DisplayOrder: 1,
		BlueprintObjects: []models.BlueprintObject{object("_deal", "amount")},
		BlueprintAssociations: []models.BlueprintAssociation{
			association("deal_contact", "_deal", "_contact"),
		},
	}
	reporting := models.Module{
		Name: "Reporting", Slug: "reporting", DependsOn: []string{"deals"}, DisplayOrder: 2,
		BlueprintObjects: []models.BlueprintObject{object("_report", "query")},
	}
	marketing := models.Module{
		Name: "Marketing", Slug: "marketing", ConflictsWith: []string{"legacy"}, DisplayOrder: 3,
		BlueprintObjects: []models.BlueprintObject{object("_campaign", "budget")},
	}
	legacy := models.Module{
		Name: "Legacy", Slug: "legacy", DisplayOrder: 4,
		BlueprintObjects: []models.BlueprintObject{object("_newsletter")},
	}
	return &models.Template{
		Name: "Sales", Slug: "sales", IsActive: true,
		Modules: []models.Module{core, deals, reporting, marketing, legacy},
	}
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}, companyID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(model).Where("company_id = ?", companyID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestInstallTemplate_CoreAddedAndOrdered(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()

	createTemplate(t, gdb, &models.Template{
		Name: "Movers CRM", Slug: "movers_crm", IsActive: true,
		Modules: []models.Module{
			{Name: "Inventory", Slug: "inventory", DependsOn: []string{"core"}, DisplayOrder: 0,
				BlueprintObjects: []models.BlueprintObject{object("_item", "sku")}},
			{Name: "Core", Slug: "core", IsCore: true, DisplayOrder: 1,
				BlueprintObjects: []models.BlueprintObject{object("_move", "date", "origin")}},
		},
	})
	companyID := createCompany(t, svc, "Acme Movers")

	result, err := svc.InstallTemplate(ctx, InstallTemplateRequest{
		CompanyID:    companyID,
		TemplateSlug: "movers_crm",
		Modules:      []string{"inventory"},
	})
	if err != nil {
		t.Fatalf("InstallTemplate: %v", err)
	}

	if got := strings.Join(result.InstalledModules, ","); got != "core,inventory" {
		t.Errorf("installed = %s, want core,inventory", got)
	}
	if result.CreatedObjectTypes != 2 || result.CreatedFields != 3 {
		t.Errorf("counts = %d objects, %d fields; want 2, 3", result.CreatedObjectTypes, result.CreatedFields)
	}
	if !result.Success || result.TemplateSlug != "movers_crm" {
		t.Errorf("unexpected result: %+v", result)
	}

	inst, err := svc.GetCompanyInstallation(ctx, companyID)
	if err != nil {
		t.Fatalf("GetCompanyInstallation: %v", err)
	}
	if inst.Template == nil || inst.Template.Slug != "movers_crm" {
		t.Fatalf("template = %+v, want movers_crm", inst.Template)
	}
	if len(inst.Modules) != 2 {
		t.Errorf("modules = %d, want 2", len(inst.Modules))
	}
}

func TestInstallTemplate_StampsCrossModuleAssociations(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()
	createTemplate(t, gdb, salesTemplate())
	companyID := createCompany(t, svc, "Acme")

	result, err := svc.InstallTemplate(ctx, InstallTemplateRequest{
		CompanyID:    companyID,
		TemplateSlug: "sales",
		Modules:      []string{"deals", "reporting"},
	})
	if err != nil {
		t.Fatalf("InstallTemplate: %v", err)
	}
	if got := strings.Join(result.InstalledModules, ","); got != "core,deals,reporting" {
		t.Errorf("installed = %s", got)
	}
	if result.CreatedAssociations != 2 {
		t.Errorf("associations = %d, want 2", result.CreatedAssociations)
	}

	st := store.New(gdb)
	types, err := st.FindObjectTypesByAPINames(ctx, companyID, []string{"_deal", "_contact"})
	if err != nil || len(types) != 2 {
		t.Fatalf("object types = %v, %v", types, err)
	}
	ids := map[string]uuid.UUID{}
	for _, ot := range types {
		if ot.TemplateOriginID == nil {
			t.Errorf("%s has no template origin", ot.APIName)
		}
		ids[ot.APIName] = ot.ID
	}

	assocs, err := st.ListAssociationTypes(ctx, companyID)
	if err != nil {
		t.Fatalf("ListAssociationTypes: %v", err)
	}
	found := false
	for _, at := range assocs {
		if at.APIName == "deal_contact" {
			found = true
			if at.SourceObjectTypeID != ids["_deal"] || at.TargetObjectTypeID != ids["_contact"] {
				t.Errorf("deal_contact wired to wrong object types")
			}
			if at.SourceCardinality != models.CardinalityMany {
				t.Errorf("source cardinality = %s, want MANY", at.SourceCardinality)
			}
		}
	}
	if !found {
		t.Error("deal_contact association not stamped")
	}
}

func TestInstallTemplate_ConflictingModules(t *testing.T) {
	svc, gdb := testSetup(t)
	createTemplate(t, gdb, salesTemplate())
	companyID := createCompany(t, svc, "Acme")

	_, err := svc.InstallTemplate(context.Background(), InstallTemplateRequest{
		CompanyID:    companyID,
		TemplateSlug: "sales",
		Modules:      []string{"marketing", "legacy"},
	})
	if !isValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "marketing x legacy") {
		t.Errorf("error %q does not name the pair", err)
	}
	if n := countRows(t, gdb, &models.ObjectType{}, companyID); n != 0 {
		t.Errorf("object types = %d after rejected install", n)
	}
}

func TestInstallTemplate_DanglingAssociationRollsBack(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()

	createTemplate(t, gdb, &models.Template{
		Name: "Broken", Slug: "broken", IsActive: true,
		Modules: []models.Module{{
			Name: "Core", Slug: "core", IsCore: true,
			BlueprintObjects:      []models.BlueprintObject{object("_contact", "email")},
			BlueprintAssociations: []models.BlueprintAssociation{association("contact_lead", "_contact", "_lead")},
		}},
	})
	companyID := createCompany(t, svc, "Acme")

	_, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: "broken"})
	if !isValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "_lead") {
		t.Errorf("error %q does not name _lead", err)
	}

	inst, err := svc.GetCompanyInstallation(ctx, companyID)
	if err != nil {
		t.Fatalf("GetCompanyInstallation: %v", err)
	}
	if inst.Template != nil || len(inst.Modules) != 0 {
		t.Errorf("installation after rollback = %+v", inst)
	}
	for _, model := range []interface{}{&models.ObjectType{}, &models.ObjectField{}, &models.AssociationType{}, &models.CompanyInstalledModule{}} {
		if n := countRows(t, gdb, model, companyID); n != 0 {
			t.Errorf("%T rows = %d after rollback", model, n)
		}
	}
}

func TestInstallTemplate_Rejections(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()
	createTemplate(t, gdb, salesTemplate())
	inactive := createTemplate(t, gdb, &models.Template{Name: "Old", Slug: "old", IsActive: false})
	companyID := createCompany(t, svc, "Acme")

	if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: uuid.New(), TemplateSlug: "sales"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown company: got %v", err)
	}
	if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown template: got %v", err)
	}
	if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: inactive.Slug}); !isValidationError(err) {
		t.Errorf("inactive template: got %v", err)
	}

	if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: "sales"}); err != nil {
		t.Fatalf("first install: %v", err)
	}
	before := countRows(t, gdb, &models.ObjectType{}, companyID)

	_, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: "sales", InstallAllModules: true})
	if !isConflictError(err) {
		t.Errorf("second install: expected ConflictError, got %v", err)
	}
	if after := countRows(t, gdb, &models.ObjectType{}, companyID); after != before {
		t.Errorf("object types changed from %d to %d on rejected install", before, after)
	}
}

func TestInstallTemplate_CompaniesAreIsolated(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()
	createTemplate(t, gdb, salesTemplate())
	first := createCompany(t, svc, "First")
	second := createCompany(t, svc, "Second")

	for _, id := range []uuid.UUID{first, second} {
		if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: id, TemplateSlug: "sales"}); err != nil {
			t.Fatalf("install for %s: %v", id, err)
		}
	}
	if a, b := countRows(t, gdb, &models.ObjectType{}, first), countRows(t, gdb, &models.ObjectType{}, second); a != 2 || b != 2 {
		t.Errorf("object types = %d, %d; want 2 each", a, b)
	}
}

func TestInstallModule(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()
	createTemplate(t, gdb, salesTemplate())
	companyID := createCompany(t, svc, "Acme")

	if _, err := svc.InstallModule(ctx, companyID, "deals", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("before template: expected ErrNotFound, got %v", err)
	}

	if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: "sales", Modules: []string{"legacy"}}); err != nil {
		t.Fatalf("InstallTemplate: %v", err)
	}

	if _, err := svc.InstallModule(ctx, companyID, "reporting", nil); !isValidationError(err) {
		t.Errorf("missing dependency: got %v", err)
	}
	if _, err := svc.InstallModule(ctx, companyID, "marketing", nil); !isValidationError(err) {
		t.Errorf("conflict with installed: got %v", err)
	}
	if _, err := svc.InstallModule(ctx, companyID, "unknown", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown module: got %v", err)
	}
	if _, err := svc.InstallModule(ctx, companyID, "core", nil); !isConflictError(err) {
		t.Errorf("already installed: got %v", err)
	}

	result, err := svc.InstallModule(ctx, companyID, "deals", nil)
	if err != nil {
		t.Fatalf("InstallModule deals: %v", err)
	}
	if result.CreatedObjectTypes != 1 || result.CreatedAssociations != 1 {
		t.Errorf("deals result = %+v", result)
	}

	slugs, err := svc.Ledger().InstalledModuleSlugs(ctx, companyID)
	if err != nil {
		t.Fatalf("InstalledModuleSlugs: %v", err)
	}
	if got := strings.Join(slugs, ","); got != "core,deals,legacy" {
		t.Errorf("installed = %s", got)
	}
}

func TestInstallModule_DuplicateObjectRejected(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()

	tmpl := salesTemplate()
	tmpl.Modules = append(tmpl.Modules, models.Module{
		Name: "Contacts Plus", Slug: "contacts_plus", DependsOn: []string{"core"}, DisplayOrder: 5,
		BlueprintObjects: []models.BlueprintObject{object("_contact", "nickname")},
	})
	createTemplate(t, gdb, tmpl)
	companyID := createCompany(t, svc, "Acme")

	if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: "sales"}); err != nil {
		t.Fatalf("InstallTemplate: %v", err)
	}
	_, err := svc.InstallModule(ctx, companyID, "contacts_plus", nil)
	if !isValidationError(err) || !strings.Contains(err.Error(), "_contact") {
		t.Errorf("expected duplicate api name error, got %v", err)
	}
	installed, err := svc.Ledger().InstalledModuleSlugs(ctx, companyID)
	if err != nil {
		t.Fatalf("InstalledModuleSlugs: %v", err)
	}
	if len(installed) != 1 {
		t.Errorf("installed = %v, want only core", installed)
	}
}

func TestGetCompanyInstallation_CacheInvalidatedOnInstall(t *testing.T) {
	svc, gdb := testSetup(t)
	ctx := context.Background()
	createTemplate(t, gdb, salesTemplate())
	companyID := createCompany(t, svc, "Acme")

	inst, err := svc.GetCompanyInstallation(ctx, companyID)
	if err != nil {
		t.Fatalf("GetCompanyInstallation: %v", err)
	}
	if inst.Template != nil {
		t.Fatalf("template = %+v before install", inst.Template)
	}

	if _, err := svc.InstallTemplate(ctx, InstallTemplateRequest{CompanyID: companyID, TemplateSlug: "sales"}); err != nil {
		t.Fatalf("InstallTemplate: %v", err)
	}
	inst, err = svc.GetCompanyInstallation(ctx, companyID)
	if err != nil {
		t.Fatalf("GetCompanyInstallation: %v", err)
	}
	if inst.Template == nil || inst.Template.Slug != "sales" {
		t.Errorf("stale installation served from cache: %+v", inst)
	}
}
