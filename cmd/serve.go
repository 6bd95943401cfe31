package main

import (
	"github.com/spf13/cobra"

	"marketplace/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the HTTP API and serves until SIGINT or SIGTERM",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.NewApp(app.WithConfig(cfg))
		if err != nil {
			return err
		}

		a.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
