package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/sheets"
	gsheet "budget/internal/sheets/google"
	mem "budget/internal/sheets/memory"
	"budget/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting budget-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is private to each process, the worker will only see an empty state")
	}

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	var writer sheets.SummaryWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		writer = mem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, summaries are only logged")
	}

	syncWorker := worker.NewSyncWorker(res.Store, writer, cfg.SyncConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)

	if res.Events != nil {
		g.Go(func() error {
			return res.Events.ConsumeMonthChanged(gctx, syncWorker.HandleMonthChanged)
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP client available")
	}

	// Periodic full resync covers messages lost while the worker was down.
	g.Go(func() error {
		logger.Info("Performing startup resync")
		if err := syncWorker.ResyncAll(gctx); err != nil {
			logger.Error("Startup resync failed", "error", err)
		}

		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := syncWorker.ResyncAll(gctx); err != nil {
					logger.Error("Periodic resync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}
