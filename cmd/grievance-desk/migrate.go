package main

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/grievance-desk/internal/config"
	"github.com/spec-kit/grievance-desk/internal/observability"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the schema for the configured store backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := observability.NewLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		b, err := openBackend(cmd.Context(), cfg, logger, true)
		if err != nil {
			return err
		}
		b.Close()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
