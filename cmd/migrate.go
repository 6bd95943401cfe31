package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marketplace/internal/config"
	postgres "marketplace/internal/repository/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down",
	Short:     "Apply or revert postgres schema migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreDriver != config.DriverPostgres {
			fmt.Fprintf(cmd.OutOrStdout(), "store driver %s keeps its schema up to date on open, nothing to migrate\n", cfg.StoreDriver)
			return nil
		}

		db, err := postgres.NewPostgresDB(cfg.Conn)
		if err != nil {
			return err
		}
		defer db.Close()

		if args[0] == "down" {
			return postgres.MigrateDown(db)
		}
		return postgres.MigrateUp(db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
