package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/crmkit/internal/service"
)

// InstallationHandler serves a company's template and module installation.
type InstallationHandler struct {
	svc *service.InstallationService
}

// NewInstallationHandler creates a new InstallationHandler
func NewInstallationHandler(svc *service.InstallationService) *InstallationHandler {
	return &InstallationHandler{svc: svc}
}

// InstallTemplateRequest is the body of POST /companies/:id/installation/template.
type InstallTemplateRequest struct {
	TemplateSlug      string   `json:"template_slug" binding:"required"`
	Modules           []string `json:"modules"`
	InstallAllModules bool     `json:"install_all_modules"`
}

// InstallModuleRequest is the body of POST /companies/:id/installation/modules.
type InstallModuleRequest struct {
	ModuleSlug string `json:"module_slug" binding:"required"`
}

// GetInstallation godoc
// @Summary Get a company's installed template and modules
// @Tags installation
// @Security BearerAuth
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} service.CompanyInstallation
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /companies/{id}/installation [get]
func (h *InstallationHandler) GetInstallation(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	inst, err := h.svc.GetCompanyInstallation(c.Request.Context(), companyID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// InstallTemplate godoc
// @Summary Install a template into a company
// @Description Core modules are always installed. Requested modules are validated for dependencies and conflicts and installed in dependency order.
// @Tags installation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param request body InstallTemplateRequest true "Template and modules"
// @Success 201 {object} service.InstallationResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /companies/{id}/installation/template [post]
func (h *InstallationHandler) InstallTemplate(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	var req InstallTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.svc.InstallTemplate(c.Request.Context(), service.InstallTemplateRequest{
		CompanyID:         companyID,
		TemplateSlug:      req.TemplateSlug,
		Modules:           req.Modules,
		InstallAllModules: req.InstallAllModules,
		ActorID:           getUserID(c),
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// InstallModule godoc
// @Summary Install one more module into a company
// @Tags installation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param request body InstallModuleRequest true "Module"
// @Success 201 {object} service.InstallationResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /companies/{id}/installation/modules [post]
func (h *InstallationHandler) InstallModule(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	var req InstallModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.svc.InstallModule(c.Request.Context(), companyID, req.ModuleSlug, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UninstallModule godoc
// @Summary Uninstall a module from a company
// @Description Without force, a module whose object types hold records is not removed; the response reports how many records would be deleted.
// @Tags installation
// @Security BearerAuth
// @Produce json
// @Param id path string true "Company ID"
// @Param slug path string true "Module slug"
// @Param force query bool false "Delete records too"
// @Success 200 {object} service.UninstallResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /companies/{id}/installation/modules/{slug} [delete]
func (h *InstallationHandler) UninstallModule(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	force := false
	if v := c.Query("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid force parameter"})
			return
		}
		force = parsed
	}

	result, err := h.svc.UninstallModule(c.Request.Context(), companyID, c.Param("slug"), force, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSchema godoc
// @Summary Get a company's live object types, fields and association types
// @Tags installation
// @Security BearerAuth
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} service.CompanySchema
// @Failure 404 {object} ErrorResponse
// @Router /companies/{id}/schema [get]
func (h *InstallationHandler) GetSchema(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	schema, err := h.svc.GetCompanySchema(c.Request.Context(), companyID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}
