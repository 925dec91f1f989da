package rbac

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupEnforcer(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "rbac.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := InitEnforcer(db, slog.Default()); err != nil {
		t.Fatalf("init enforcer: %v", err)
	}
}

func TestCompanyAccess(t *testing.T) {
	setupEnforcer(t)
	user := uuid.New()
	company := uuid.New()
	other := uuid.New()

	if ok, _ := Can(user, company, ActionRead); ok {
		t.Fatal("expected no access before grant")
	}

	if err := GrantCompanyAccess(user, company, RoleViewer); err != nil {
		t.Fatalf("grant viewer: %v", err)
	}
	if ok, _ := Can(user, company, ActionRead); !ok {
		t.Error("viewer should be able to read")
	}
	if ok, _ := Can(user, company, ActionWrite); ok {
		t.Error("viewer should not be able to write")
	}

	if err := GrantCompanyAccess(user, company, RoleOwner); err != nil {
		t.Fatalf("grant owner: %v", err)
	}
	if ok, _ := Can(user, company, ActionWrite); !ok {
		t.Error("owner should be able to write")
	}
	if ok, _ := Can(user, company, ActionRead); !ok {
		t.Error("write grant should imply read")
	}
	if ok, _ := Can(user, other, ActionRead); ok {
		t.Error("grant must not leak to other companies")
	}

	if err := RevokeCompanyAccess(user, company); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := Can(user, company, ActionRead); ok {
		t.Error("expected no access after revoke")
	}
}

func TestGrantCompanyAccess_ReplacesEarlierRole(t *testing.T) {
	setupEnforcer(t)
	user := uuid.New()
	company := uuid.New()

	if err := GrantCompanyAccess(user, company, RoleEditor); err != nil {
		t.Fatalf("grant editor: %v", err)
	}
	if err := GrantCompanyAccess(user, company, RoleViewer); err != nil {
		t.Fatalf("grant viewer: %v", err)
	}
	if ok, _ := Can(user, company, ActionWrite); ok {
		t.Error("downgrade to viewer should remove write access")
	}

	members, err := CompanyMembers(company)
	if err != nil {
		t.Fatalf("CompanyMembers: %v", err)
	}
	if len(members) != 1 || members[0].UserID != user || members[0].Action != ActionRead {
		t.Errorf("members = %+v, want one reader", members)
	}
}

func TestAdminCanAccessAnyCompany(t *testing.T) {
	setupEnforcer(t)
	admin := uuid.New()

	if err := MakeAdmin(admin); err != nil {
		t.Fatalf("make admin: %v", err)
	}
	if ok, _ := IsAdmin(admin); !ok {
		t.Fatal("expected admin")
	}
	if ok, _ := Can(admin, uuid.New(), ActionWrite); !ok {
		t.Error("admin should be able to write any company")
	}

	if err := RevokeAdmin(admin); err != nil {
		t.Fatalf("revoke admin: %v", err)
	}
	if ok, _ := IsAdmin(admin); ok {
		t.Error("expected admin revoked")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"owner", RoleOwner, false},
		{" Editor ", RoleEditor, false},
		{"viewer", RoleViewer, false},
		{"superuser", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRole(%q) = %q, %v", tt.input, got, err)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidRole) {
			t.Errorf("ParseRole(%q) error = %v, want ErrInvalidRole", tt.input, err)
		}
	}
	if err := GrantCompanyAccess(uuid.New(), uuid.New(), Role("superuser")); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("grant with invalid role: %v", err)
	}
}
