package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"marketplace/internal/app"
	"marketplace/internal/service"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Move open jobs with an accepted proposal to in_progress",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := app.NewLogger(cfg)
		if err != nil {
			return err
		}

		store, err := app.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, store.Close())
		}()

		svc := service.NewService(store, service.WithLogger(logger), service.WithStoreTimeout(cfg.StoreTimeout))
		n, err := svc.Reconcile(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d jobs\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
