package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentAllocation, Output: &buf})

	l.Info("computed", FieldCount, 3)
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec[FieldComponent] != ComponentAllocation || rec[FieldCount] != float64(3) {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "text", Output: &buf}).WithComponent(ComponentStorage)
	l.Warn("slow query")
	if n := strings.Count(buf.String(), "component="); n != 1 {
		t.Fatalf("expected one component attribute, got %d in %q", n, buf.String())
	}
	if !strings.Contains(buf.String(), "component=storage") {
		t.Fatalf("missing component: %q", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
	want := Discard()
	if got := FromContext(WithLogger(context.Background(), want)); got != want {
		t.Fatalf("expected stored logger")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	req := httptest.NewRequest("GET", "/api/dashboard?x=1", nil)

	sl.LogHTTPEnd(context.Background(), req, 503, 12, "10.0.0.1")
	sl.LogError(context.Background(), "boom", errors.New("db down"), ComponentStorage, OpList, nil)

	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"status_code":503`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(out, `"error":"db down"`) {
		t.Fatalf("missing error field: %s", out)
	}
}
