package records

import (
	"context"
	"errors"
	"fmt"

	"budgetdash/internal/core"
)

const demoCreator = "user@company.com"

// DemoExpenses is the sample expense set used by SEED_DEMO_DATA and
// `budgetctl seed`. It references the default catalog.
func DemoExpenses() []core.ExpenseRecord {
	mk := func(id, dept, cat, desc string, amount int64, date core.Date, st core.Status) core.ExpenseRecord {
		return core.ExpenseRecord{
			ID:           id,
			DepartmentID: dept,
			CategoryID:   cat,
			Description:  desc,
			Amount:       core.NewMoney(amount),
			Date:         date,
			Status:       st,
			CreatedBy:    demoCreator,
		}
	}
	return []core.ExpenseRecord{
		mk("1", "purchase", "materials", "Construction materials", 450000, core.NewDate(2025, 1, 15), core.StatusApproved),
		mk("2", "engineering", "outsource", "Project consultant", 800000, core.NewDate(2025, 1, 20), core.StatusApproved),
		mk("3", "operations", "materials", "Machinery equipment", 650000, core.NewDate(2025, 2, 1), core.StatusPending),
		mk("4", "quality", "materials", "Inspection tools", 280000, core.NewDate(2025, 2, 5), core.StatusApproved),
		mk("5", "painting", "materials", "Paint and painting supplies", 180000, core.NewDate(2025, 2, 10), core.StatusApproved),
	}
}

// DemoIndirectCosts is the sample set of organization-wide costs.
func DemoIndirectCosts() []core.IndirectCostRecord {
	mk := func(id, cat, desc string, amount int64, date core.Date, p core.AllocationPolicy) core.IndirectCostRecord {
		return core.IndirectCostRecord{
			ID:          id,
			CategoryID:  cat,
			Description: desc,
			Amount:      core.NewMoney(amount),
			Date:        date,
			Policy:      p,
		}
	}
	return []core.IndirectCostRecord{
		mk("ic1", "utilities", "Monthly electricity", 250000, core.NewDate(2025, 1, 31), core.PolicyEqual),
		mk("ic2", "utilities", "Monthly water", 80000, core.NewDate(2025, 1, 31), core.PolicyEqual),
		mk("ic3", "salary", "General staff salaries", 1500000, core.NewDate(2025, 1, 31), core.PolicyProportional),
		mk("ic4", "maintenance", "Building maintenance", 150000, core.NewDate(2025, 2, 15), core.PolicyEqual),
	}
}

// Seed inserts the demo records that are not already present and returns
// how many were created.
func Seed(ctx context.Context, s Store) (int, error) {
	created := 0
	for _, e := range DemoExpenses() {
		_, err := s.CreateExpense(ctx, e)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrAlreadyExists):
		default:
			return created, fmt.Errorf("seed expense %s: %w", e.ID, err)
		}
	}
	for _, c := range DemoIndirectCosts() {
		_, err := s.CreateIndirectCost(ctx, c)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrAlreadyExists):
		default:
			return created, fmt.Errorf("seed indirect cost %s: %w", c.ID, err)
		}
	}
	return created, nil
}
