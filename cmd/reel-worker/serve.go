package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/race-reels/internal/health"
	"github.com/yourusername/race-reels/internal/metrics"
	"github.com/yourusername/race-reels/internal/scheduler"
	"github.com/yourusername/race-reels/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /invoke with health checks and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	sched := scheduler.NewScheduler(appLogger)
	if cfg.Scratch.SweepSchedule != "" {
		if err := sched.ScheduleScratchSweep(cfg.Scratch.SweepSchedule, cfg.Scratch.Root, service.ScratchDirPrefix, cfg.ScratchMaxAge()); err != nil {
			return fmt.Errorf("failed to schedule scratch sweep: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	serverCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Server.Port,
		Logger:      appLogger,
		DB:          p.ledgers,
		Invoker:     p.invoker,
	}
	if cfg.Metrics.Enabled {
		serverCfg.MetricsPath = cfg.Metrics.Path
		serverCfg.MetricsHandler = metrics.Handler()
	}

	server := health.NewServer(serverCfg)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	server.SetReady(true)

	appLogger.WithField("port", cfg.Server.Port).Info("Reel worker ready")
	<-ctx.Done()
	server.SetReady(false)
	appLogger.Info("Reel worker shutting down")
	return nil
}
