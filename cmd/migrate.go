package main

import (
	"log/slog"

	"claims-service/internal/config"
	"claims-service/internal/database/postgres"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema.sql to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			closeLog, err := setupLoggingFromConfig(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.ApplySchema(cmd.Context(), db, schemaPath); err != nil {
				return err
			}
			slog.Info("Schema applied", "database", cfg.PostgresCfg.DBname)
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to schema.sql (searched for when empty)")
	return cmd
}
