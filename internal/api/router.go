package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/crmkit/internal/api/handlers"
	"github.com/nebari-dev/crmkit/internal/api/middleware"
	"github.com/nebari-dev/crmkit/internal/auth"
	"github.com/nebari-dev/crmkit/internal/config"
	"github.com/nebari-dev/crmkit/internal/metrics"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"github.com/nebari-dev/crmkit/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// NewRouter wires the public, company-scoped and admin routes. Company
// routes check the caller's grant on :id; admin routes require the admin
// policy.
func NewRouter(cfg *config.Config, db *gorm.DB, svc *service.InstallationService) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS())
	if cfg.Metrics.Enabled {
		router.Use(metrics.Middleware())
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	var authenticator auth.Authenticator
	switch cfg.Auth.Type {
	case "none":
		authenticator = auth.NewNoneAuthenticator(db)
		slog.Warn("Authentication disabled; all requests run as the local admin")
	default:
		authenticator = auth.NewBasicAuthenticator(db, cfg.Auth.JWTSecret)
	}
	handlers.AuthMode = cfg.Auth.Type

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck(db))
		public.GET("/version", handlers.GetVersion)
		public.POST("/auth/login", handlers.Login(authenticator))
	}

	installHandler := handlers.NewInstallationHandler(svc)
	templateHandler := handlers.NewTemplateHandler(svc)
	adminHandler := handlers.NewAdminHandler(db, svc)

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/templates", templateHandler.ListTemplates)

		company := protected.Group("/companies/:id")
		{
			company.GET("/installation", middleware.RequireCompanyAccess(rbac.ActionRead), installHandler.GetInstallation)
			company.GET("/schema", middleware.RequireCompanyAccess(rbac.ActionRead), installHandler.GetSchema)
			company.POST("/installation/template", middleware.RequireCompanyAccess(rbac.ActionWrite), installHandler.InstallTemplate)
			company.POST("/installation/modules", middleware.RequireCompanyAccess(rbac.ActionWrite), installHandler.InstallModule)
			company.DELETE("/installation/modules/:slug", middleware.RequireCompanyAccess(rbac.ActionWrite), installHandler.UninstallModule)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/companies", adminHandler.ListCompanies)
			admin.POST("/companies", adminHandler.CreateCompany)
			admin.GET("/companies/:id/members", adminHandler.ListCompanyMembers)
			admin.POST("/companies/:id/members", adminHandler.GrantCompanyAccess)
			admin.GET("/companies/:id/audit-logs", adminHandler.ListAuditLogs)
		}
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode, "auth", cfg.Auth.Type)
	return router
}
