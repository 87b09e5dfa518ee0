package report

import (
	"fmt"
	"strings"

	"budgetdash/internal/core"
)

// Filter narrows expense-based reports. Empty fields match everything; the
// date range is inclusive on both ends.
type Filter struct {
	DepartmentID string
	CategoryID   string
	From         core.Date
	To           core.Date
}

// ParseFilter builds a filter from query-string style values. "all" is
// accepted as a wildcard for department and category.
func ParseFilter(department, category, from, to string) (Filter, error) {
	f := Filter{
		DepartmentID: wildcard(department),
		CategoryID:   wildcard(category),
	}
	var err error
	if strings.TrimSpace(from) != "" {
		if f.From, err = core.ParseDate(from); err != nil {
			return Filter{}, fmt.Errorf("from: %w", err)
		}
	}
	if strings.TrimSpace(to) != "" {
		if f.To, err = core.ParseDate(to); err != nil {
			return Filter{}, fmt.Errorf("to: %w", err)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return Filter{}, fmt.Errorf("%w: range ends before it starts", core.ErrInvalidDate)
	}
	return f, nil
}

func wildcard(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// Match applies department, category and date constraints. Status is not
// part of the filter; each report decides which statuses it counts.
func (f Filter) Match(e core.ExpenseRecord) bool {
	if f.DepartmentID != "" && e.DepartmentID != f.DepartmentID {
		return false
	}
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To.Time) {
		return false
	}
	return true
}

// Apply returns the matching expenses, keeping their order.
func (f Filter) Apply(expenses []core.ExpenseRecord) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, 0, len(expenses))
	for _, e := range expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
