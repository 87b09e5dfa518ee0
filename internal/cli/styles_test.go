package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"budgetdash/internal/allocation"
	"budgetdash/internal/config"
	"budgetdash/internal/log"
	"budgetdash/internal/report"
)

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := report.Table{
		Columns: []string{"department", "actual"},
		Rows:    [][]string{{"Purchasing", "940736.84"}, {"total", "3690000.00"}},
	}
	if err := RenderTable(&buf, tbl); err != nil {
		t.Fatalf("RenderTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "department") || !strings.Contains(lines[0], "actual") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "----------") {
		t.Errorf("rule line = %q", lines[1])
	}
	if !strings.Contains(lines[3], "3690000.00") {
		t.Errorf("last line = %q", lines[3])
	}
}

func TestBandStyle(t *testing.T) {
	tests := []struct {
		band allocation.Band
		want lipgloss.Color
	}{
		{allocation.BandHealthy, SuccessColor},
		{allocation.BandWarning, WarningColor},
		{allocation.BandCritical, ErrorColor},
		{allocation.BandNotApplicable, SubtleColor},
	}
	for _, tt := range tests {
		if got := BandStyle(tt.band).GetForeground(); got != lipgloss.TerminalColor(tt.want) {
			t.Errorf("BandStyle(%s) foreground = %v, want %v", tt.band, got, tt.want)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	if logger == nil {
		t.Fatal("SetupLogger() returned nil")
	}
	if logger.Component() != log.ComponentApp {
		t.Errorf("Component() = %s", logger.Component())
	}
	if SetupLogger(nil) == nil {
		t.Fatal("SetupLogger(nil) returned nil")
	}
}

func TestCatalogSource(t *testing.T) {
	if got := catalogSource(""); got != "built-in" {
		t.Errorf("catalogSource(\"\") = %s", got)
	}
	if got := catalogSource("/etc/ref.yaml"); got != "/etc/ref.yaml" {
		t.Errorf("catalogSource() = %s", got)
	}
}
