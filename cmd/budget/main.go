package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budget/internal/backend"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	"budget/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
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

	cache, err := services.NewSummaryCache(cfg.SummaryCacheTTL)
	if err != nil {
		logger.Error("Failed to initialize summary cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	opts := []services.Option{services.WithSummaryCache(cache)}
	if res.Events != nil {
		opts = append(opts, services.WithPublisher(res.Events))
	}

	svc, err := services.NewBudgetService(context.Background(), res.Store, opts...)
	if err != nil {
		logger.Error("Failed to load budget state", "error", err)
		os.Exit(1)
	}

	serverOpts := []apphttp.Option{apphttp.WithRateLimit(cfg.RateLimit)}
	if len(cfg.TrustedProxies) > 0 {
		serverOpts = append(serverOpts, apphttp.WithTrustedProxies(cfg.TrustedProxies...))
	}
	if res.Ready != nil {
		serverOpts = append(serverOpts, apphttp.WithReadyCheck(res.Ready))
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, serverOpts...)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting budget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"active_month", svc.ActiveMonth(),
		"events_enabled", res.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
