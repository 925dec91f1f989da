package service

import "github.com/google/uuid"

// InstallTemplateRequest holds parameters for installing a template.
type InstallTemplateRequest struct {
	CompanyID         uuid.UUID
	TemplateSlug      string
	Modules           []string // explicit module slugs; core modules are always added
	InstallAllModules bool
	ActorID           *uuid.UUID // user recorded in the audit log, nil for CLI
}

// InstallationResult is returned after a successful template or module install.
type InstallationResult struct {
	Success             bool     `json:"success"`
	TemplateSlug        string   `json:"template_slug"`
	InstalledModules    []string `json:"installed_modules"`
	CreatedObjectTypes  int      `json:"created_object_types"`
	CreatedFields       int      `json:"created_fields"`
	CreatedAssociations int      `json:"created_associations"`
}

// UninstallOutcome distinguishes a dry-run report from an executed removal.
type UninstallOutcome string

const (
	// UninstallReported means nothing was deleted; the result describes the impact.
	UninstallReported UninstallOutcome = "reported"
	// UninstallRemoved means the module and its live entities were deleted.
	UninstallRemoved UninstallOutcome = "removed"
)

// UninstallResult is returned by UninstallModule.
type UninstallResult struct {
	Outcome      UninstallOutcome `json:"outcome"`
	Message      string           `json:"message"`
	DeletedCount int64            `json:"deleted_count"`
}

// TemplateSummary is the template part of a company installation.
type TemplateSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// ModuleSummary describes one installed module.
type ModuleSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	IsCore       bool      `json:"is_core"`
	DisplayOrder int       `json:"display_order"`
}

// CompanyInstallation is the installation status of a company.
type CompanyInstallation struct {
	Template *TemplateSummary `json:"template"`
	Modules  []ModuleSummary  `json:"modules"`
}
