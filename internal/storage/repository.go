package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgetdash/internal/core"
	"budgetdash/internal/records"
)

// SQLiteRepository is the persistent records.Store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ records.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}

func expenseFromRow(e Expense) (core.ExpenseRecord, error) {
	d, err := core.ParseDate(e.Date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	return core.ExpenseRecord{
		ID:           e.ID,
		DepartmentID: e.DepartmentID,
		CategoryID:   e.CategoryID,
		Description:  e.Description,
		Amount:       core.Money{Cents: e.AmountCents},
		Date:         d,
		Status:       core.Status(e.Status),
		CreatedBy:    e.CreatedBy,
		Version:      e.Version,
	}, nil
}

func indirectFromRow(c IndirectCost) (core.IndirectCostRecord, error) {
	d, err := core.ParseDate(c.Date)
	if err != nil {
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s: %w", c.ID, err)
	}
	return core.IndirectCostRecord{
		ID:          c.ID,
		CategoryID:  c.CategoryID,
		Description: c.Description,
		Amount:      core.Money{Cents: c.AmountCents},
		Date:        d,
		Policy:      core.AllocationPolicy(c.Policy),
		Version:     c.Version,
	}, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:           e.ID,
		DepartmentID: e.DepartmentID,
		CategoryID:   e.CategoryID,
		Description:  e.Description,
		AmountCents:  e.Amount.Cents,
		Date:         e.Date.String(),
		Status:       string(e.Status),
		CreatedBy:    e.CreatedBy,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", e.ID, records.ErrAlreadyExists)
		}
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"department_id", row.DepartmentID,
		"amount_cents", row.AmountCents)

	return expenseFromRow(row)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense: %w", err)
	}
	return expenseFromRow(row)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	row, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		DepartmentID: e.DepartmentID,
		CategoryID:   e.CategoryID,
		Description:  e.Description,
		AmountCents:  e.Amount.Cents,
		Date:         e.Date.String(),
		Status:       string(e.Status),
		CreatedBy:    e.CreatedBy,
		ID:           e.ID,
		Version:      e.Version,
	})
	if errors.Is(err, sql.ErrNoRows) {
		// Either the id is unknown or the version is stale.
		if _, getErr := r.GetExpense(ctx, e.ID); getErr != nil {
			return core.ExpenseRecord{}, getErr
		}
		return core.ExpenseRecord{}, fmt.Errorf("expense %s at version %d: %w", e.ID, e.Version, records.ErrConflict)
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("update expense: %w", err)
	}
	return expenseFromRow(row)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, records.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CreateIndirectCost(ctx context.Context, c core.IndirectCostRecord) (core.IndirectCostRecord, error) {
	row, err := r.queries.CreateIndirectCost(ctx, CreateIndirectCostParams{
		ID:          c.ID,
		CategoryID:  c.CategoryID,
		Description: c.Description,
		AmountCents: c.Amount.Cents,
		Date:        c.Date.String(),
		Policy:      string(c.Policy),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s: %w", c.ID, records.ErrAlreadyExists)
		}
		return core.IndirectCostRecord{}, fmt.Errorf("create indirect cost: %w", err)
	}

	slog.DebugContext(ctx, "Indirect cost saved to SQLite",
		"id", row.ID,
		"policy", row.Policy,
		"amount_cents", row.AmountCents)

	return indirectFromRow(row)
}

func (r *SQLiteRepository) GetIndirectCost(ctx context.Context, id string) (core.IndirectCostRecord, error) {
	row, err := r.queries.GetIndirectCost(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return core.IndirectCostRecord{}, fmt.Errorf("get indirect cost: %w", err)
	}
	return indirectFromRow(row)
}

func (r *SQLiteRepository) ListIndirectCosts(ctx context.Context) ([]core.IndirectCostRecord, error) {
	rows, err := r.queries.ListIndirectCosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indirect costs: %w", err)
	}
	out := make([]core.IndirectCostRecord, 0, len(rows))
	for _, row := range rows {
		c, err := indirectFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateIndirectCost(ctx context.Context, c core.IndirectCostRecord) (core.IndirectCostRecord, error) {
	row, err := r.queries.UpdateIndirectCost(ctx, UpdateIndirectCostParams{
		CategoryID:  c.CategoryID,
		Description: c.Description,
		AmountCents: c.Amount.Cents,
		Date:        c.Date.String(),
		Policy:      string(c.Policy),
		ID:          c.ID,
		Version:     c.Version,
	})
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetIndirectCost(ctx, c.ID); getErr != nil {
			return core.IndirectCostRecord{}, getErr
		}
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s at version %d: %w", c.ID, c.Version, records.ErrConflict)
	}
	if err != nil {
		return core.IndirectCostRecord{}, fmt.Errorf("update indirect cost: %w", err)
	}
	return indirectFromRow(row)
}

func (r *SQLiteRepository) DeleteIndirectCost(ctx context.Context, id string) error {
	n, err := r.queries.DeleteIndirectCost(ctx, id)
	if err != nil {
		return fmt.Errorf("delete indirect cost: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("indirect cost %s: %w", id, records.ErrNotFound)
	}
	return nil
}
