package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/budget"
	"tally/internal/cli"
	"tally/internal/events"
	tallyhttp "tally/internal/http"
	"tally/internal/ledger"
	"tally/internal/recurrence"
	"tally/internal/report"
	"tally/internal/services"
	"tally/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("tallyd")
	logger.Info("Starting tallyd")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.OpenBackend(logger, cfg)
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Failed to close storage backend", "error", err)
			}
		}
	}()

	// AMQP is optional: without a URL, mutations simply go unpublished.
	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
		} else {
			eventsClient = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, ledger events will not be published")
	}

	ldg := ledger.New(result.Store)
	engine := recurrence.New(result.Store, ldg)
	tracker := budget.New(result.Store)
	reports := report.New(ldg)
	service := services.NewLedgerService(ldg, engine, eventsClient)
	defer func() {
		if err := service.Close(); err != nil {
			logger.Error("Failed to close ledger service", "error", err)
		}
	}()

	server := tallyhttp.NewServer(":"+cfg.Port, service, tracker, reports)
	sweeper := worker.NewSweeper(engine, cfg.RecurrenceSweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := sweeper.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, draining HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Shutdown with error", "error", err)
		return
	}
	logger.Info("tallyd shutdown complete")
}
