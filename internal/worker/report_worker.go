package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetdash/internal/amqp"
	"budgetdash/internal/log"
	"budgetdash/internal/report"
	"budgetdash/internal/sheets"
)

// Snapshotter loads the current reference data and records.
type Snapshotter interface {
	Snapshot(ctx context.Context) (report.Snapshot, error)
}

// Config holds configuration for the report worker
type Config struct {
	// AllocationSheet receives the per-department budget vs actual table.
	AllocationSheet string
	// SummarySheet receives the organization summary.
	SummarySheet string
	// Interval is how often the report is republished regardless of events
	// (default: 5m). It covers change events lost while the worker was down.
	Interval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AllocationSheet: "Allocation",
		SummarySheet:    "Summary",
		Interval:        5 * time.Minute,
	}
}

// ReportWorker keeps the allocation report in a spreadsheet up to date.
// It republishes on every change event and on a timer.
type ReportWorker struct {
	source Snapshotter
	writer sheets.ReportWriter
	config Config
	logger *log.Logger

	publishMu sync.Mutex

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReportWorker(source Snapshotter, writer sheets.ReportWriter, config Config, logger *log.Logger) *ReportWorker {
	def := DefaultConfig()
	if config.AllocationSheet == "" {
		config.AllocationSheet = def.AllocationSheet
	}
	if config.SummarySheet == "" {
		config.SummarySheet = def.SummarySheet
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		source: source,
		writer: writer,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Publish recomputes the allocation and writes both tables. Concurrent
// calls are serialized so the sheets always hold one consistent snapshot.
func (w *ReportWorker) Publish(ctx context.Context) error {
	w.publishMu.Lock()
	defer w.publishMu.Unlock()

	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	budget := report.BuildBudgetVsActual(snap)
	summary := report.BuildExecutive(snap)

	if err := w.writer.WriteTable(ctx, w.config.AllocationSheet, budget.Table()); err != nil {
		return fmt.Errorf("write %s: %w", w.config.AllocationSheet, err)
	}
	if err := w.writer.WriteTable(ctx, w.config.SummarySheet, summary.Table()); err != nil {
		return fmt.Errorf("write %s: %w", w.config.SummarySheet, err)
	}

	w.logger.InfoContext(ctx, "Allocation report published",
		"departments", len(budget.Rows),
		"total_spent", budget.Totals.TotalSpent.StringFixed(2),
		"expenses", len(snap.Expenses),
		"indirect_costs", len(snap.IndirectCosts))
	return nil
}

// HandleRecordChanged is the AMQP handler. Returning the publish error makes
// the consumer requeue the event.
func (w *ReportWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing record changed message",
		log.FieldRecordKind, msg.Kind,
		log.FieldRecordID, msg.ID,
		log.FieldVersion, msg.Version,
		"op", msg.Op)

	if err := w.Publish(ctx); err != nil {
		return fmt.Errorf("publish report after %s %s: %w", msg.Op, msg.ID, err)
	}
	return nil
}

// Start publishes once and then on every tick until Stop or ctx ends.
// Returns an error if already running.
func (w *ReportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("report worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	w.logger.InfoContext(ctx, "Report worker started", "interval", w.config.Interval)
	return nil
}

// Stop gracefully stops the periodic loop and waits for completion.
func (w *ReportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Report worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Report worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the periodic loop is running
func (w *ReportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ReportWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Publish immediately on startup
	w.publishLogged(ctx, log.OpStartup)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.publishLogged(ctx, "refresh")
		}
	}
}

func (w *ReportWorker) publishLogged(ctx context.Context, trigger string) {
	if err := w.Publish(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish allocation report",
			log.FieldError, err, "trigger", trigger)
	}
}
