package memory

import (
	"context"
	"errors"
	"testing"

	"budgetdash/internal/report"
)

func TestWriteTableReplacesSheet(t *testing.T) {
	ctx := context.Background()
	w := New()

	first := report.Table{Columns: []string{"a"}, Rows: [][]string{{"1"}, {"2"}}}
	if err := w.WriteTable(ctx, "2025 Allocation", first); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	// mutating the caller's table must not leak into the stored copy
	first.Rows[0][0] = "changed"

	got, ok := w.Table("2025 Allocation")
	if !ok || got.Rows[0][0] != "1" || len(got.Rows) != 2 {
		t.Fatalf("stored table = %+v ok=%v", got, ok)
	}

	if err := w.WriteTable(ctx, "2025 Allocation", report.Table{Columns: []string{"b"}}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, _ = w.Table("2025 Allocation")
	if len(got.Rows) != 0 || got.Columns[0] != "b" {
		t.Errorf("sheet not replaced: %+v", got)
	}
	if w.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", w.Writes())
	}
}

func TestWriteTableRejectsEmptyName(t *testing.T) {
	w := New()
	if err := w.WriteTable(context.Background(), "  ", report.Table{}); !errors.Is(err, ErrEmptySheetName) {
		t.Fatalf("expected ErrEmptySheetName, got %v", err)
	}
	if len(w.Sheets()) != 0 {
		t.Errorf("Sheets() = %v, want none", w.Sheets())
	}
}

func TestSheetsSorted(t *testing.T) {
	ctx := context.Background()
	w := New()
	for _, name := range []string{"Summary", "Allocation"} {
		if err := w.WriteTable(ctx, name, report.Table{}); err != nil {
			t.Fatal(err)
		}
	}
	got := w.Sheets()
	if len(got) != 2 || got[0] != "Allocation" || got[1] != "Summary" {
		t.Errorf("Sheets() = %v", got)
	}
}
