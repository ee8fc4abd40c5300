package main

import (
	"encoding/json"
	"fmt"
	"os"

	"claims-service/internal/config"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <outage-id>",
		Short: "Run the claims pipeline once for an outage and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			closeLog, err := setupLoggingFromConfig(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.orchestrator.ProcessOutage(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("pipeline run failed: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
