// Package rbac authorizes access to companies with a casbin enforcer whose
// policies are stored next to the application tables.
package rbac

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

var enforcer *casbin.Enforcer

// Action is what a request wants to do with a company.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Role is a company membership level. Owners and editors both map to the
// write action; the distinction is kept for display.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ErrInvalidRole is returned for roles other than owner, editor and viewer.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleOwner, RoleEditor, RoleViewer:
		return r, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidRole, s)
}

func (r Role) action() Action {
	if r == RoleViewer {
		return ActionRead
	}
	return ActionWrite
}

// Member is one user's grant on a company.
type Member struct {
	UserID uuid.UUID `json:"user_id"`
	Action Action    `json:"action"`
}

// InitEnforcer loads the model and the stored policies. It must run before
// any other function in this package.
func InitEnforcer(db *gorm.DB, logger *slog.Logger) error {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	enforcer = e
	logger.Info("RBAC enforcer initialized")
	return nil
}

func companyObject(companyID uuid.UUID) string {
	return "company:" + companyID.String()
}

// Can reports whether the user may perform action on the company. A write
// grant implies read and admins pass every check.
func Can(userID, companyID uuid.UUID, action Action) (bool, error) {
	return enforcer.Enforce(userID.String(), companyObject(companyID), string(action))
}

// IsAdmin checks if user has admin privileges
func IsAdmin(userID uuid.UUID) (bool, error) {
	return enforcer.Enforce(userID.String(), "admin", "admin")
}

// GrantCompanyAccess sets the user's role on a company, replacing any
// earlier grant so that downgrades take effect.
func GrantCompanyAccess(userID, companyID uuid.UUID, role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	sub, obj := userID.String(), companyObject(companyID)
	if _, err := enforcer.RemoveFilteredPolicy(0, sub, obj); err != nil {
		return err
	}
	if _, err := enforcer.AddPolicy(sub, obj, string(role.action())); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// RevokeCompanyAccess removes every grant the user has on a company.
func RevokeCompanyAccess(userID, companyID uuid.UUID) error {
	if _, err := enforcer.RemoveFilteredPolicy(0, userID.String(), companyObject(companyID)); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// CompanyMembers lists the users with a grant on a company, ordered by id.
// Admins are not listed.
func CompanyMembers(companyID uuid.UUID) ([]Member, error) {
	policies, err := enforcer.GetFilteredPolicy(1, companyObject(companyID))
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(policies))
	for _, p := range policies {
		id, err := uuid.Parse(p[0])
		if err != nil {
			continue
		}
		members = append(members, Member{UserID: id, Action: Action(p[2])})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID.String() < members[j].UserID.String()
	})
	return members, nil
}

// MakeAdmin grants admin privileges to a user
func MakeAdmin(userID uuid.UUID) error {
	if _, err := enforcer.AddPolicy(userID.String(), "admin", "admin"); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// RevokeAdmin removes admin privileges from a user
func RevokeAdmin(userID uuid.UUID) error {
	if _, err := enforcer.RemovePolicy(userID.String(), "admin", "admin"); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}
