package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var companySlug string

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Manage companies",
}

var companyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a company",
	Long: `Create a company. The slug is derived from the name unless --slug is given.

Examples:
  crmkit company create "Acme Movers"
  crmkit company create "Acme Movers" --slug acme`,
	Args: cobra.ExactArgs(1),
	Run:  runCompanyCreate,
}

var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	Args:  cobra.NoArgs,
	Run:   runCompanyList,
}

func init() {
	companyCreateCmd.Flags().StringVar(&companySlug, "slug", "", "Company slug (default derived from name)")

	companyCmd.AddCommand(companyCreateCmd)
	companyCmd.AddCommand(companyListCmd)
}

func runCompanyCreate(cmd *cobra.Command, args []string) {
	e := mustOpenEnv()
	defer e.Close()

	c, err := e.svc.CreateCompany(context.Background(), args[0], companySlug, nil)
	if err != nil {
		exitWithError(err)
	}
	fmt.Printf("Created company %s (%s)\n", c.Slug, c.ID)
}

func runCompanyList(cmd *cobra.Command, args []string) {
	e := mustOpenEnv()
	defer e.Close()

	companies, err := e.svc.ListCompanies(context.Background())
	if err != nil {
		exitWithError(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tNAME")
	for _, c := range companies {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Slug, c.Name)
	}
	w.Flush()
}
