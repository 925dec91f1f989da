package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/crmkit/internal/service"
)

// TemplateHandler serves the blueprint catalog.
type TemplateHandler struct {
	svc *service.InstallationService
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(svc *service.InstallationService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// ListTemplates godoc
// @Summary List installable templates and their modules
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Template
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.svc.ListTemplates(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}
