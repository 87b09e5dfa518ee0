package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"budgetdash/internal/allocation"
	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/records"
	"budgetdash/internal/reference"
	"budgetdash/internal/report"
)

// RecordLister is the read side of the record store.
type RecordLister interface {
	ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	ListIndirectCosts(ctx context.Context) ([]core.IndirectCostRecord, error)
}

var _ RecordLister = (records.Store)(nil)

// AllocationService computes allocation results and reports from the
// current state of the record store. Every call recomputes from scratch.
type AllocationService struct {
	store   RecordLister
	catalog *reference.Catalog
	logger  *log.Logger
}

func NewAllocationService(store RecordLister, catalog *reference.Catalog, logger *log.Logger) *AllocationService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AllocationService{
		store:   store,
		catalog: catalog,
		logger:  logger.WithComponent(log.ComponentAllocation),
	}
}

func (s *AllocationService) Catalog() *reference.Catalog {
	return s.catalog
}

// Snapshot loads expenses and indirect costs concurrently.
func (s *AllocationService) Snapshot(ctx context.Context) (report.Snapshot, error) {
	snap := report.Snapshot{Catalog: s.catalog}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		expenses, err := s.store.ListExpenses(gctx)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		snap.Expenses = expenses
		return nil
	})
	g.Go(func() error {
		costs, err := s.store.ListIndirectCosts(gctx)
		if err != nil {
			return fmt.Errorf("list indirect costs: %w", err)
		}
		snap.IndirectCosts = costs
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Snapshot{}, err
	}
	return snap, nil
}

// Compute runs the allocation over a fresh snapshot.
func (s *AllocationService) Compute(ctx context.Context) (allocation.Report, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return allocation.Report{}, err
	}
	r := snap.Allocation()
	s.logExclusions(ctx, r.Excluded)

	s.logger.DebugContext(ctx, "Allocation computed",
		log.FieldOperation, log.OpAllocate,
		"departments", len(r.Departments),
		"expenses", len(snap.Expenses),
		"indirect_costs", len(snap.IndirectCosts),
		"total_spent", r.Totals.TotalSpent.StringFixed(2))
	return r, nil
}

// Report builds one report kind over a fresh snapshot.
func (s *AllocationService) Report(ctx context.Context, kind report.Kind, f report.Filter) (report.Report, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	r, err := report.Build(kind, snap, f)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Report built", log.FieldReportKind, kind, log.FieldOperation, log.OpExport)
	return r, nil
}

// logExclusions warns about approved expenses the engine could not attribute.
func (s *AllocationService) logExclusions(ctx context.Context, excluded []allocation.Exclusion) {
	for _, x := range excluded {
		s.logger.WarnContext(ctx, "Expense excluded from allocation",
			log.FieldRecordID, x.RecordID,
			"reason", x.Reason,
			"value", x.Value)
	}
}
