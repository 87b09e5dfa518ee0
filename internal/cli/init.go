// Package cli provides common initialization shared by cmd/budgetdash,
// cmd/report-worker and cmd/budgetctl, plus the terminal styles budgetctl
// renders with.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetdash/internal/config"
	"budgetdash/internal/log"
	"budgetdash/internal/reference"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// sets it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	if cfg != nil {
		lc.Level = log.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// LoadCatalog reads REFERENCE_DATA_FILE, or the built-in reference data when
// it is unset. Exits the process when the file is invalid.
func LoadCatalog(logger *log.Logger, cfg *config.Config) *reference.Catalog {
	catalog, err := LoadCatalogFile(cfg.ReferenceDataFile)
	if err != nil {
		logger.Error("Failed to load reference data",
			log.FieldError, err,
			"path", cfg.ReferenceDataFile)
		os.Exit(1)
	}
	logger.Info("Reference data loaded",
		"source", catalogSource(cfg.ReferenceDataFile),
		"departments", len(catalog.Departments()),
		"categories", len(catalog.Categories()))
	return catalog
}

// LoadCatalogFile is LoadCatalog for callers that handle the error.
func LoadCatalogFile(path string) (*reference.Catalog, error) {
	catalog, err := reference.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load reference data from %s: %w", catalogSource(path), err)
	}
	return catalog, nil
}

func catalogSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
