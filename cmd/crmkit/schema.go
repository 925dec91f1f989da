package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema <company-id>",
	Short: "Show a company's live object types and associations",
	Args:  cobra.ExactArgs(1),
	Run:   runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Output as JSON")
}

func runSchema(cmd *cobra.Command, args []string) {
	companyID, err := parseCompanyID(args[0])
	if err != nil {
		exitWithError(err)
	}

	e := mustOpenEnv()
	defer e.Close()

	schema, err := e.svc.GetCompanySchema(context.Background(), companyID)
	if err != nil {
		exitWithError(err)
	}

	if schemaJSON {
		if err := printJSON(schema); err != nil {
			exitWithError(err)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OBJECT\tNAME\tFIELDS\tPROTECTION")
	for _, ot := range schema.ObjectTypes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", ot.APIName, ot.Name, len(ot.Fields), ot.Protection)
	}
	w.Flush()

	if len(schema.AssociationTypes) == 0 {
		return
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ASSOCIATION\tSOURCE\tTARGET\tCARDINALITY")
	for _, at := range schema.AssociationTypes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s:%s\n", at.APIName, at.Source, at.Target, at.SourceCardinality, at.TargetCardinality)
	}
	w.Flush()
}
