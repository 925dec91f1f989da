package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/nebari-dev/crmkit/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "crmkit",
	Short: "crmkit - CRM template and module installation engine",
	Long:  `crmkit stamps CRM templates and modules into per-company schemas and tracks what each company has installed.`,
	Example: `  # Load template definitions and create a company
  crmkit blueprints sync ./blueprints
  crmkit company create "Acme Movers"

  # Install a template with one optional module, then inspect it
  crmkit install template <company-id> movers_crm --modules inventory
  crmkit status <company-id>

  # Preview and force an uninstall
  crmkit uninstall <company-id> inventory
  crmkit uninstall <company-id> inventory --force`,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "install", Title: "Installation Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)

	installCmd.GroupID = "install"
	uninstallCmd.GroupID = "install"
	statusCmd.GroupID = "install"
	schemaCmd.GroupID = "install"

	blueprintsCmd.GroupID = "admin"
	companyCmd.GroupID = "admin"
	userCmd.GroupID = "admin"
	migrateCmd.GroupID = "admin"
	serveCmd.GroupID = "admin"

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(blueprintsCmd)
	rootCmd.AddCommand(companyCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
