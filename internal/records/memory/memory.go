// Package memory is an in-process record store for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"budgetdash/internal/core"
	"budgetdash/internal/records"
)

type Store struct {
	mu       sync.Mutex
	expenses []core.ExpenseRecord
	indirect []core.IndirectCostRecord
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewSeeded returns a store holding the demo records.
func NewSeeded() *Store {
	s := New()
	if _, err := records.Seed(context.Background(), s); err != nil {
		panic(err)
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.expenses, e.ID, expenseID) >= 0 {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", e.ID, records.ErrAlreadyExists)
	}
	e.Version = 1
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.expenses, id, expenseID)
	if i < 0 {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", id, records.ErrNotFound)
	}
	return s.expenses[i], nil
}

// ListExpenses returns a copy; callers may modify it freely.
func (s *Store) ListExpenses(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.expenses), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.expenses, e.ID, expenseID)
	if i < 0 {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", e.ID, records.ErrNotFound)
	}
	if s.expenses[i].Version != e.Version {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s at version %d: %w", e.ID, e.Version, records.ErrConflict)
	}
	e.Version++
	s.expenses[i] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.expenses, id, expenseID)
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, records.ErrNotFound)
	}
	s.expenses = slices.Delete(s.expenses, i, i+1)
	return nil
}

func (s *Store) CreateIndirectCost(_ context.Context, c core.IndirectCostRecord) (core.IndirectCostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.indirect, c.ID, indirectID) >= 0 {
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s: %w", c.ID, records.ErrAlreadyExists)
	}
	c.Version = 1
	s.indirect = append(s.indirect, c)
	return c, nil
}

func (s *Store) GetIndirectCost(_ context.Context, id string) (core.IndirectCostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.indirect, id, indirectID)
	if i < 0 {
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s: %w", id, records.ErrNotFound)
	}
	return s.indirect[i], nil
}

func (s *Store) ListIndirectCosts(_ context.Context) ([]core.IndirectCostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.indirect), nil
}

func (s *Store) UpdateIndirectCost(_ context.Context, c core.IndirectCostRecord) (core.IndirectCostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.indirect, c.ID, indirectID)
	if i < 0 {
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s: %w", c.ID, records.ErrNotFound)
	}
	if s.indirect[i].Version != c.Version {
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s at version %d: %w", c.ID, c.Version, records.ErrConflict)
	}
	c.Version++
	s.indirect[i] = c
	return c, nil
}

func (s *Store) DeleteIndirectCost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.indirect, id, indirectID)
	if i < 0 {
		return fmt.Errorf("indirect cost %s: %w", id, records.ErrNotFound)
	}
	s.indirect = slices.Delete(s.indirect, i, i+1)
	return nil
}

func expenseID(e core.ExpenseRecord) string       { return e.ID }
func indirectID(c core.IndirectCostRecord) string { return c.ID }

func indexOf[T any](items []T, id string, key func(T) string) int {
	return slices.IndexFunc(items, func(it T) bool { return key(it) == id })
}
