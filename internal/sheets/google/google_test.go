package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetdash/internal/report"
)

// fakeSheets implements the handful of Sheets v4 endpoints the writer uses.
type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	calls   []string
	written map[string][][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, title := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		title := req.Requests[0].AddSheet.Properties.Title
		f.calls = append(f.calls, "add "+title)
		f.titles = append(f.titles, title)
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.calls = append(f.calls, "update")
		if i := strings.Index(path, "/values/"); i >= 0 {
			rng := path[i+len("/values/"):]
			f.written[rng] = vr.Values
		}
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"updatedCells": 4})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, titles ...string) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{titles: titles, written: map[string][][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-id", Credentials{},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", Credentials{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := readCredentials(Credentials{}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("expected missing credentials error, got %v", err)
	}

	got, err := readCredentials(Credentials{JSON: ` {"type":"service_account"} `, File: "/does/not/exist"})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Errorf("inline JSON should win: %q err=%v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = readCredentials(Credentials{File: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Errorf("file credentials: %q err=%v", got, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if _, err := readCredentials(Credentials{}); err != nil {
		t.Errorf("GOOGLE_APPLICATION_CREDENTIALS fallback: %v", err)
	}

	if _, err := readCredentials(Credentials{File: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for unreadable file")
	}
}

func TestA1Range(t *testing.T) {
	tests := []struct {
		sheet, cells, want string
	}{
		{"Allocation", "A1", "'Allocation'!A1"},
		{"Org Summary", "A:ZZ", "'Org Summary'!A:ZZ"},
		{"Bob's", "A1", "'Bob''s'!A1"},
	}
	for _, tt := range tests {
		if got := a1Range(tt.sheet, tt.cells); got != tt.want {
			t.Errorf("a1Range(%q, %q) = %q, want %q", tt.sheet, tt.cells, got, tt.want)
		}
	}
}

func TestWriteTable_CreatesMissingSheet(t *testing.T) {
	c, fake := newTestClient(t, "Sheet1")
	table := report.Table{Columns: []string{"department", "budget"}, Rows: [][]string{{"Purchase", "5000000.00"}}}

	if err := c.WriteTable(context.Background(), "Allocation", table); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	want := []string{"get", "add Allocation", "clear", "update"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}

	values := fake.written["'Allocation'!A1"]
	if len(values) != 2 || values[0][0] != "department" || values[1][1] != "5000000.00" {
		t.Errorf("written values = %v", values)
	}
}

func TestWriteTable_ReusesKnownSheet(t *testing.T) {
	c, fake := newTestClient(t, "Allocation")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.WriteTable(ctx, "Allocation", report.Table{Columns: []string{"x"}}); err != nil {
			t.Fatalf("WriteTable() #%d error = %v", i, err)
		}
	}

	want := []string{"get", "clear", "update", "clear", "update"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
}

func TestWriteTable_Errors(t *testing.T) {
	c := &Client{spreadsheetID: "test", known: map[string]bool{}}
	if err := c.WriteTable(context.Background(), "Allocation", report.Table{}); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
	if err := c.WriteTable(context.Background(), " ", report.Table{}); err == nil {
		t.Error("expected error for empty sheet name")
	}
}
