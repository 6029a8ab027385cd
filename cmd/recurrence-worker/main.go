package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"tally/internal/cli"
	"tally/internal/ledger"
	"tally/internal/recurrence"
	"tally/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("recurrence-worker")
	logger.Info("Starting recurrence-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.OpenBackend(logger, cfg)
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Failed to close storage backend", "error", err)
			}
		}
	}()

	ldg := ledger.New(result.Store)
	engine := recurrence.New(result.Store, ldg)
	sweeper := worker.NewSweeper(engine, cfg.RecurrenceSweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up immediately, then let the cron schedule take over.
	if count, err := sweeper.RunOnce(ctx); err != nil {
		logger.Error("Initial recurrence sweep failed", "error", err)
	} else {
		logger.Info("Initial recurrence sweep complete", "instances_created", count)
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.RecurrenceCronSpec, func() {
		count, err := sweeper.RunOnce(ctx)
		if err != nil {
			logger.Error("Scheduled recurrence sweep failed", "error", err)
			return
		}
		logger.Info("Scheduled recurrence sweep complete", "instances_created", count)
	})
	if err != nil {
		logger.Error("Invalid cron spec", "spec", cfg.RecurrenceCronSpec, "error", err)
		return
	}

	scheduler.Start()
	logger.Info("Recurrence sweep scheduled",
		"cron", cfg.RecurrenceCronSpec,
		"backend", cfg.DataBackend)

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping scheduler")

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Recurrence-worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
