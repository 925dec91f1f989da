package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <company-id>",
	Short: "Show a company's installed template and modules",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) {
	companyID, err := parseCompanyID(args[0])
	if err != nil {
		exitWithError(err)
	}

	e := mustOpenEnv()
	defer e.Close()

	inst, err := e.svc.GetCompanyInstallation(context.Background(), companyID)
	if err != nil {
		exitWithError(err)
	}

	if statusJSON {
		if err := printJSON(inst); err != nil {
			exitWithError(err)
		}
		return
	}

	if inst.Template == nil {
		fmt.Println("No template installed.")
		return
	}
	fmt.Printf("Template: %s (%s)\n\n", inst.Template.Name, inst.Template.Slug)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tNAME\tCORE")
	for _, m := range inst.Modules {
		core := ""
		if m.IsCore {
			core = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Slug, m.Name, core)
	}
	w.Flush()
}
