package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetdash/internal/amqp"
	"budgetdash/internal/backend"
	"budgetdash/internal/cli"
	"budgetdash/internal/config"
	"budgetdash/internal/log"
	gsheet "budgetdash/internal/sheets/google"
	"budgetdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(config.Load())
	logger.Info("Starting report-worker")

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is private to this process; the worker will only see seeded demo data")
	}
	catalog := cli.LoadCatalog(logger, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The worker only reads records, so its backend never publishes events.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	bcfg.AMQPURL = ""
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg, catalog)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer result.Cleanup()

	sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, gsheet.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(result.Backend.Allocation, sheetsClient, worker.Config{
		AllocationSheet: cfg.ReportSheetName,
		SummarySheet:    cfg.SummarySheetName,
		Interval:        cfg.ReportInterval,
	}, logger)

	sigCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		cancel()
		if err := reportWorker.Stop(shutdownCtx); err != nil {
			logger.Error("Report worker stop error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reportWorker.Start(gctx)
	})
	g.Go(func() error {
		err := amqpClient.ConsumeRecordChanged(gctx, reportWorker.HandleRecordChanged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Report worker failed", log.FieldError, err)
		cancel()
		_ = reportWorker.Stop(context.Background())
		os.Exit(1)
	}

	cli.WaitForShutdown(sigCtx, done)
	logger.Info("Report worker stopped")
}
