package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSQLDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		cmd.Printf("Database (%s) is up to date\n", cfg.DatabaseType)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
