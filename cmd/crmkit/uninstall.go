package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	uninstallForce bool
	uninstallJSON  bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <company-id> <module-slug>",
	Short: "Uninstall a module from a company",
	Long: `Uninstall a non-core module from a company.

If the module's object types still hold records, nothing is removed and
the number of affected records is reported. Pass --force to delete the
records along with the module's schema.

Examples:
  crmkit uninstall <company-id> inventory
  crmkit uninstall <company-id> inventory --force`,
	Args: cobra.ExactArgs(2),
	Run:  runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallForce, "force", "f", false, "Delete existing records of the module's object types")
	uninstallCmd.Flags().BoolVar(&uninstallJSON, "json", false, "Output as JSON")
}

func runUninstall(cmd *cobra.Command, args []string) {
	companyID, err := parseCompanyID(args[0])
	if err != nil {
		exitWithError(err)
	}

	e := mustOpenEnv()
	defer e.Close()

	result, err := e.svc.UninstallModule(context.Background(), companyID, args[1], uninstallForce, nil)
	if err != nil {
		exitWithError(err)
	}

	if uninstallJSON {
		if err := printJSON(result); err != nil {
			exitWithError(err)
		}
		return
	}
	fmt.Printf("%s: %s\n", result.Outcome, result.Message)
}
