package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"claims-service/internal/config"
	"claims-service/internal/database/postgres"
	"claims-service/internal/event"
	"claims-service/internal/handlers"
	"claims-service/internal/services"
	"claims-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var noMonitor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outage monitor and the payment consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			closeLog, err := setupLoggingFromConfig(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			return serve(cmd.Context(), cfg, !noMonitor)
		},
	}

	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "disable the scheduled outage scan")
	return cmd
}

func serve(parent context.Context, cfg *config.ClaimsServiceConfig, withMonitor bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := postgres.ApplySchema(ctx, a.db, ""); err != nil {
		slog.Error("failed to apply schema", "error", err)
	}

	var poolWg sync.WaitGroup
	var monitor *services.OutageMonitor
	if withMonitor {
		pool := worker.NewWorkingPool("outage-monitor", cfg.MonitorCfg.Workers, cfg.MonitorCfg.QueueSize)
		poolWg.Add(1)
		go pool.Start(ctx, &poolWg)

		monitor = services.NewOutageMonitor(a.outages, a.orchestrator, pool, cfg.MonitorCfg.Lookback)
		if err := monitor.Start(ctx, cfg.MonitorCfg.Schedule); err != nil {
			return err
		}
		defer monitor.Stop()
	}

	if a.rabbit != nil {
		consumer := event.NewPaymentConsumer(a.rabbit, a.orchestrator)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("failed to start payment consumer", "error", err)
		}
	}

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		if !postgres.DBStatus {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Claims service database unavailable")
		}
		if a.rabbit != nil && !a.rabbit.IsHealthy() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Claims service broker connection lost")
		}
		return c.Status(fiber.StatusOK).SendString("Claims service is healthy")
	})

	handlers.NewPipelineHandler(a.orchestrator, cfg.APIKey).Register(app)
	handlers.NewClaimHandler(a.claimService, cfg.APIKey).Register(app)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		listenErr <- app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port))
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	stop()
	poolWg.Wait()
	return nil
}
