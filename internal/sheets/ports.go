// Package sheets publishes report tables to spreadsheets.
package sheets

import (
	"context"

	"budgetdash/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the content of a named sheet with a table.
	ReportWriter interface {
		WriteTable(ctx context.Context, sheet string, t report.Table) error
	}
)
