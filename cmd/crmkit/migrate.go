package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Run database migrations against the configured database and exit.
The server runs the same migrations on startup.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := mustOpenEnv()
		defer e.Close()
		fmt.Printf("Database migrated (%s)\n", e.cfg.Database.Driver)
	},
}
