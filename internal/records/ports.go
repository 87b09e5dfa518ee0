// Package records defines the record store ports and the demo data set.
package records

import (
	"context"
	"errors"

	"budgetdash/internal/core"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is returned when an update carries a stale version.
	ErrConflict = errors.New("record version conflict")
)

// Ports for outbound adapters.
//
// Create stores the record with Version 1; the id must be set by the caller.
// Update requires the record's Version to match the stored one and returns
// the record with the incremented version. List returns records in creation
// order.
type (
	ExpenseRepository interface {
		CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
		GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
		ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
		UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	IndirectCostRepository interface {
		CreateIndirectCost(ctx context.Context, c core.IndirectCostRecord) (core.IndirectCostRecord, error)
		GetIndirectCost(ctx context.Context, id string) (core.IndirectCostRecord, error)
		ListIndirectCosts(ctx context.Context) ([]core.IndirectCostRecord, error)
		UpdateIndirectCost(ctx context.Context, c core.IndirectCostRecord) (core.IndirectCostRecord, error)
		DeleteIndirectCost(ctx context.Context, id string) error
	}

	Store interface {
		ExpenseRepository
		IndirectCostRepository
		Close() error
	}
)
