// Package memory is a ReportWriter that keeps the last table per sheet, for
// development without Google credentials and for tests.
package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"budgetdash/internal/report"
	"budgetdash/internal/sheets"
)

var ErrEmptySheetName = errors.New("empty sheet name")

type Writer struct {
	mu     sync.Mutex
	sheets map[string]report.Table
	writes int
}

var _ sheets.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{sheets: make(map[string]report.Table)}
}

func (w *Writer) WriteTable(_ context.Context, sheet string, t report.Table) error {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return ErrEmptySheetName
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = slices.Clone(r)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[sheet] = report.Table{Columns: slices.Clone(t.Columns), Rows: rows}
	w.writes++
	return nil
}

// Table returns the last table written to sheet.
func (w *Writer) Table(sheet string) (report.Table, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.sheets[sheet]
	return t, ok
}

// Sheets lists the sheet names written so far, sorted.
func (w *Writer) Sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.sheets))
	for name := range w.sheets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Writes counts successful WriteTable calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
