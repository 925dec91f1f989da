package main

import (
	"fmt"
	"os"

	"github.com/nebari-dev/crmkit/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

// @title crmkit API
// @version 1.0
// @description Multi-tenant CRM template and module installation API
// @host localhost:8470
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the crmkit API server",
	Long: `Start the crmkit HTTP API.

Examples:
  crmkit serve                  # Use configured port
  crmkit serve --port 8080      # Override port

Environment variables:
  CRMKIT_SERVER_PORT         Server port (default: 8470)
  CRMKIT_DATABASE_DRIVER     Database driver: sqlite, postgres
  CRMKIT_DATABASE_DSN        Database connection string
  CRMKIT_AUTH_TYPE           Authentication: basic, none
  CRMKIT_AUTH_JWT_SECRET     JWT signing secret
  CRMKIT_CACHE_TYPE          Installation cache: none, memory, valkey
  CRMKIT_BLUEPRINTS_DIR      Directory synced on startup
  CRMKIT_ADMIN_USERNAME      Bootstrap admin username
  CRMKIT_ADMIN_PASSWORD      Bootstrap admin password`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := server.Config{
		Port:    servePort,
		Version: Version,
	}

	if err := server.RunWithSignalHandling(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
