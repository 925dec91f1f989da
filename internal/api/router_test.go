package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/crmkit/internal/api/middleware"
	"github.com/nebari-dev/crmkit/internal/auth"
	"github.com/nebari-dev/crmkit/internal/config"
	"github.com/nebari-dev/crmkit/internal/db"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"github.com/nebari-dev/crmkit/internal/service"
	"github.com/nebari-dev/crmkit/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T, authType string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// The RBAC enforcer is package global, so reinitialize it per test.
	if err := rbac.InitEnforcer(gdb, slog.Default()); err != nil {
		t.Fatalf("init rbac: %v", err)
	}

	tmpl := &models.Template{
		Name: "Movers CRM", Slug: "movers_crm", IsActive: true,
		Modules: []models.Module{
			{Name: "Core", Slug: "core", IsCore: true,
				BlueprintObjects: []models.BlueprintObject{{Name: "Move", APIName: "_move"}}},
			{Name: "Inventory", Slug: "inventory", DependsOn: []string{"core"}, DisplayOrder: 1,
				BlueprintObjects: []models.BlueprintObject{{Name: "Item", APIName: "_item"}}},
		},
	}
	st := store.New(gdb)
	if err := st.CreateTemplateTree(context.Background(), tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "development"},
		Auth:    config.AuthConfig{Type: authType, JWTSecret: "test-secret"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	return NewRouter(cfg, gdb, service.New(st, nil)), gdb
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestInstallationFlow(t *testing.T) {
	r, _ := setupRouter(t, "none")

	w := do(t, r, http.MethodPost, "/api/v1/admin/companies", "", map[string]string{"name": "Acme Movers"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create company: %d %s", w.Code, w.Body.String())
	}
	var company models.Company
	decode(t, w, &company)
	if company.Slug != "acme-movers" {
		t.Errorf("slug = %q", company.Slug)
	}
	base := "/api/v1/companies/" + company.ID.String() + "/installation"

	w = do(t, r, http.MethodPost, base+"/template", "", map[string]interface{}{
		"template_slug": "movers_crm",
		"modules":       []string{"inventory"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("install template: %d %s", w.Code, w.Body.String())
	}
	var result service.InstallationResult
	decode(t, w, &result)
	if strings.Join(result.InstalledModules, ",") != "core,inventory" {
		t.Errorf("installed = %v", result.InstalledModules)
	}

	w = do(t, r, http.MethodPost, base+"/template", "", map[string]interface{}{"template_slug": "movers_crm"})
	if w.Code != http.StatusConflict {
		t.Errorf("second install: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, base, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get installation: %d", w.Code)
	}
	var inst service.CompanyInstallation
	decode(t, w, &inst)
	if inst.Template == nil || len(inst.Modules) != 2 {
		t.Errorf("installation = %+v", inst)
	}

	w = do(t, r, http.MethodGet, "/api/v1/companies/"+company.ID.String()+"/schema", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get schema: %d %s", w.Code, w.Body.String())
	}
	var schema service.CompanySchema
	decode(t, w, &schema)
	if len(schema.ObjectTypes) != 2 || schema.ObjectTypes[0].APIName != "_item" || !schema.ObjectTypes[0].Stamped {
		t.Errorf("schema = %+v", schema)
	}

	w = do(t, r, http.MethodDelete, base+"/modules/inventory", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("uninstall: %d %s", w.Code, w.Body.String())
	}
	var un service.UninstallResult
	decode(t, w, &un)
	if un.Outcome != service.UninstallRemoved {
		t.Errorf("outcome = %s", un.Outcome)
	}

	w = do(t, r, http.MethodDelete, base+"/modules/core?force=true", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("uninstall core: %d", w.Code)
	}
	w = do(t, r, http.MethodDelete, base+"/modules/ghost", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("uninstall unknown: %d", w.Code)
	}
	w = do(t, r, http.MethodDelete, base+"/modules/inventory?force=maybe", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad force: %d", w.Code)
	}

	w = do(t, r, http.MethodPost, base+"/modules", "", map[string]string{"module_slug": "inventory"})
	if w.Code != http.StatusCreated {
		t.Errorf("reinstall module: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/v1/admin/companies/"+company.ID.String()+"/audit-logs", "", nil)
	var logs []models.AuditLog
	decode(t, w, &logs)
	if len(logs) < 4 {
		t.Errorf("audit logs = %d, want at least 4", len(logs))
	}
}

func TestInstallTemplate_BadRequests(t *testing.T) {
	r, _ := setupRouter(t, "none")

	if w := do(t, r, http.MethodGet, "/api/v1/companies/not-a-uuid/installation", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid id: %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/api/v1/companies/00000000-0000-0000-0000-000000000001/installation/template", "", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing template_slug: %d", w.Code)
	}
	w = do(t, r, http.MethodPost, "/api/v1/companies/00000000-0000-0000-0000-000000000001/installation/template", "", map[string]string{"template_slug": "movers_crm"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown company: %d", w.Code)
	}
}

func TestBasicAuthAccessControl(t *testing.T) {
	r, gdb := setupRouter(t, "basic")

	admin, err := auth.CreateUser(gdb, "admin", "", "adminpw")
	if err != nil {
		t.Fatal(err)
	}
	if err := rbac.MakeAdmin(admin.ID); err != nil {
		t.Fatal(err)
	}
	viewer, err := auth.CreateUser(gdb, "viewer", "", "viewerpw")
	if err != nil {
		t.Fatal(err)
	}

	login := func(user, pass string) string {
		w := do(t, r, http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Username: user, Password: pass})
		if w.Code != http.StatusOK {
			t.Fatalf("login %s: %d", user, w.Code)
		}
		var resp auth.LoginResponse
		decode(t, w, &resp)
		return resp.Token
	}
	adminToken := login("admin", "adminpw")
	viewerToken := login("viewer", "viewerpw")

	if w := do(t, r, http.MethodGet, "/api/v1/templates", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: %d", w.Code)
	}

	w := do(t, r, http.MethodPost, "/api/v1/admin/companies", viewerToken, map[string]string{"name": "Acme"})
	if w.Code != http.StatusForbidden {
		t.Errorf("viewer creating company: %d", w.Code)
	}
	w = do(t, r, http.MethodPost, "/api/v1/admin/companies", adminToken, map[string]string{"name": "Acme"})
	if w.Code != http.StatusCreated {
		t.Fatalf("admin creating company: %d %s", w.Code, w.Body.String())
	}
	var company models.Company
	decode(t, w, &company)
	base := "/api/v1/companies/" + company.ID.String() + "/installation"

	if w := do(t, r, http.MethodGet, base, viewerToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("viewer without grant: %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/v1/admin/companies/"+company.ID.String()+"/members", adminToken,
		map[string]string{"user_id": viewer.ID.String(), "role": "viewer"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("grant: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/api/v1/admin/companies/"+company.ID.String()+"/members", adminToken, nil)
	var members []rbac.Member
	decode(t, w, &members)
	if len(members) != 1 || members[0].UserID != viewer.ID || members[0].Action != rbac.ActionRead {
		t.Errorf("members = %+v", members)
	}

	if w := do(t, r, http.MethodGet, base, viewerToken, nil); w.Code != http.StatusOK {
		t.Errorf("viewer read: %d", w.Code)
	}
	w = do(t, r, http.MethodPost, base+"/template", viewerToken, map[string]string{"template_slug": "movers_crm"})
	if w.Code != http.StatusForbidden {
		t.Errorf("viewer write: %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/api/v1/templates", viewerToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("templates: %d", w.Code)
	}
	var templates []models.Template
	decode(t, w, &templates)
	if len(templates) != 1 || len(templates[0].Modules) != 2 {
		t.Errorf("templates = %+v", templates)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := setupRouter(t, "none")

	w := do(t, r, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health: %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("response is missing a request id")
	}
	if w := do(t, r, http.MethodOptions, "/api/v1/templates", "", nil); w.Code != http.StatusNoContent {
		t.Errorf("preflight: %d", w.Code)
	}
	do(t, r, http.MethodGet, "/api/v1/version", "", nil)

	w = do(t, r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "crmkit_http_requests_total") {
		t.Error("metrics output missing crmkit_http_requests_total")
	}
}
