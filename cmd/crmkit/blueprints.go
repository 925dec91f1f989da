package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/nebari-dev/crmkit/internal/blueprint"
	"github.com/spf13/cobra"
)

var blueprintsPattern string

var blueprintsCmd = &cobra.Command{
	Use:   "blueprints",
	Short: "Manage the template catalog",
}

var blueprintsSyncCmd = &cobra.Command{
	Use:   "sync [dir]",
	Short: "Load template definitions into the catalog",
	Long: `Load YAML and TOML template definitions from a directory and upsert
them into the catalog by slug. Templates that a company has installed
are left unchanged.

If dir is omitted, blueprints.dir from the configuration is used.

Examples:
  crmkit blueprints sync ./blueprints
  crmkit blueprints sync ./blueprints --pattern 'sales/*.yaml'`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBlueprintsSync,
}

var blueprintsValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check template definition files without touching the database",
	Args:  cobra.MinimumNArgs(1),
	Run:   runBlueprintsValidate,
}

var blueprintsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates in the catalog",
	Args:  cobra.NoArgs,
	Run:   runBlueprintsList,
}

func init() {
	blueprintsSyncCmd.Flags().StringVar(&blueprintsPattern, "pattern", "", "Glob pattern relative to dir (default from config)")

	blueprintsCmd.AddCommand(blueprintsSyncCmd)
	blueprintsCmd.AddCommand(blueprintsValidateCmd)
	blueprintsCmd.AddCommand(blueprintsListCmd)
}

func runBlueprintsSync(cmd *cobra.Command, args []string) {
	e := mustOpenEnv()
	defer e.Close()

	dir := e.cfg.Blueprints.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		exitWithError(fmt.Errorf("no blueprint directory given and blueprints.dir is not configured"))
	}
	pattern := e.cfg.Blueprints.Pattern
	if blueprintsPattern != "" {
		pattern = blueprintsPattern
	}

	results, err := blueprint.SyncDir(context.Background(), e.store, dir, pattern)
	if err != nil {
		exitWithError(err)
	}
	if len(results) == 0 {
		fmt.Printf("No template definitions found in %s\n", dir)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEMPLATE\tACTION\tSOURCE")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Slug, r.Action, r.Source)
	}
	w.Flush()
}

func runBlueprintsValidate(cmd *cobra.Command, args []string) {
	failed := false
	for _, path := range args {
		def, err := blueprint.LoadFile(path)
		if err == nil {
			err = def.Validate()
		}
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s: ok (%s, %d modules)\n", path, def.Slug, len(def.Modules))
	}
	if failed {
		os.Exit(1)
	}
}

func runBlueprintsList(cmd *cobra.Command, args []string) {
	e := mustOpenEnv()
	defer e.Close()

	templates, err := e.svc.ListTemplates(context.Background())
	if err != nil {
		exitWithError(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tACTIVE\tMODULES")
	for _, t := range templates {
		slugs := make([]string, 0, len(t.Modules))
		for _, m := range t.Modules {
			slugs = append(slugs, m.Slug)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", t.Slug, t.Name, t.IsActive, strings.Join(slugs, ","))
	}
	w.Flush()
}
