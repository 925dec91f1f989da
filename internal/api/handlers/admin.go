package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/audit"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"github.com/nebari-dev/crmkit/internal/service"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db  *gorm.DB
	svc *service.InstallationService
}

func NewAdminHandler(db *gorm.DB, svc *service.InstallationService) *AdminHandler {
	return &AdminHandler{db: db, svc: svc}
}

// CreateCompanyRequest is the body of POST /admin/companies.
type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

// GrantAccessRequest is the body of POST /admin/companies/:id/members.
type GrantAccessRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required,oneof=owner editor viewer"`
}

// CreateCompany godoc
// @Summary Create a company (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param company body CreateCompanyRequest true "Company details"
// @Success 201 {object} models.Company
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/companies [post]
func (h *AdminHandler) CreateCompany(c *gin.Context) {
	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	company, err := h.svc.CreateCompany(c.Request.Context(), req.Name, req.Slug, getUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// ListCompanies godoc
// @Summary List companies (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Company
// @Router /admin/companies [get]
func (h *AdminHandler) ListCompanies(c *gin.Context) {
	companies, err := h.svc.ListCompanies(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// GrantCompanyAccess godoc
// @Summary Grant a user access to a company (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Param id path string true "Company ID"
// @Param request body GrantAccessRequest true "User and role"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /admin/companies/{id}/members [post]
func (h *AdminHandler) GrantCompanyAccess(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	var req GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", req.UserID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}
	if err := rbac.GrantCompanyAccess(user.ID, companyID, rbac.Role(req.Role)); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to grant access"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCompanyMembers godoc
// @Summary List users with access to a company (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {array} rbac.Member
// @Router /admin/companies/{id}/members [get]
func (h *AdminHandler) ListCompanyMembers(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	members, err := rbac.CompanyMembers(companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list members"})
		return
	}
	c.JSON(http.StatusOK, members)
}

// ListAuditLogs godoc
// @Summary List a company's audit log (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Company ID"
// @Param limit query int false "Maximum entries" default(100)
// @Success 200 {array} models.AuditLog
// @Router /admin/companies/{id}/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	companyID, ok := companyIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := audit.ForCompany(h.db, companyID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch audit logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
