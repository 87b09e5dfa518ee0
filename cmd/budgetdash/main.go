package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetdash/internal/backend"
	"budgetdash/internal/cli"
	"budgetdash/internal/config"
	apphttp "budgetdash/internal/http"
	"budgetdash/internal/log"
	"budgetdash/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(config.Load())
	cfg := cli.LoadAndValidateConfig(logger)
	catalog := cli.LoadCatalog(logger, cfg)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(startCtx, bcfg, catalog)
	startCancel()
	if err != nil {
		logger.Error("Failed to initialize backend",
			log.FieldError, err,
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, apphttp.Options{
		RateLimit:      ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM},
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting budgetdash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", result.Backend.Publishing)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
