package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"budgetdash/internal/backend"
	"budgetdash/internal/middleware/ratelimit"
	"budgetdash/internal/middleware/trace"
)

func newTestServer(t *testing.T, rpm int) *Server {
	t.Helper()
	ctx := context.Background()
	res, err := backend.NewFactory(nil).CreateBackend(ctx, backend.Config{
		Type:         backend.MemoryBackend,
		SeedDemoData: true,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	s := NewServer(":0", res.Backend, Options{RateLimit: ratelimit.Config{RequestsPerMinute: rpm}})
	t.Cleanup(func() {
		_ = s.Shutdown(ctx)
		_ = res.Cleanup()
	})
	return s
}

func do(t *testing.T, s *Server, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if role != "" {
		req.Header.Set(RoleHeader, role)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, 1000)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, s, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body)
		}
	}
	ready := decode[map[string]any](t, do(t, s, http.MethodGet, "/readyz", "", ""))
	if ready["status"] != "ready" {
		t.Errorf("readyz = %v", ready)
	}
}

func TestMiddlewareChain(t *testing.T) {
	s := newTestServer(t, 1000)
	rr := do(t, s, http.MethodGet, "/api/dashboard", "user", "")
	if rr.Header().Get(trace.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	rr = do(t, s, http.MethodGet, "/api/nope", "user", "")
	if rr.Code != http.StatusNotFound || decode[errorBody](t, rr).Error == "" {
		t.Errorf("unknown api path: status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestRoleHeader(t *testing.T) {
	s := newTestServer(t, 1000)
	tests := []struct {
		role string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"intern", http.StatusForbidden},
		{"user", http.StatusOK},
		{" Manager ", http.StatusOK},
	}
	for _, tt := range tests {
		if rr := do(t, s, http.MethodGet, "/api/dashboard", tt.role, ""); rr.Code != tt.want {
			t.Errorf("role %q: status=%d want %d", tt.role, rr.Code, tt.want)
		}
	}
}

func TestRolePermissions(t *testing.T) {
	const indirect = `{"category_id":"utilities","description":"Gas","amount":"1200.00","date":"2025-03-31","policy":"equal"}`
	tests := []struct {
		name   string
		method string
		path   string
		role   string
		body   string
		want   int
	}{
		{"user cannot see allocation", http.MethodGet, "/api/allocation", "user", "", http.StatusForbidden},
		{"analyst sees allocation", http.MethodGet, "/api/allocation", "analyst", "", http.StatusOK},
		{"user cannot list indirect costs", http.MethodGet, "/api/indirect-costs", "user", "", http.StatusForbidden},
		{"analyst lists indirect costs", http.MethodGet, "/api/indirect-costs", "analyst", "", http.StatusOK},
		{"user cannot add indirect costs", http.MethodPost, "/api/indirect-costs", "user", indirect, http.StatusForbidden},
		{"analyst adds indirect costs", http.MethodPost, "/api/indirect-costs", "analyst", indirect, http.StatusCreated},
		{"analyst cannot approve", http.MethodPost, "/api/expenses/3/status", "analyst", `{"status":"approved"}`, http.StatusForbidden},
		{"manager approves", http.MethodPost, "/api/expenses/3/status", "manager", `{"status":"approved"}`, http.StatusOK},
		{"user lists expenses", http.MethodGet, "/api/expenses", "user", "", http.StatusOK},
		{"user cannot export executive", http.MethodGet, "/api/reports/executive", "user", "", http.StatusForbidden},
		{"manager exports executive", http.MethodGet, "/api/reports/executive", "manager", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 1000)
			rr := do(t, s, tt.method, tt.path, tt.role, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
		})
	}
}

func TestNavigation(t *testing.T) {
	s := newTestServer(t, 1000)

	user := decode[navigationResponse](t, do(t, s, http.MethodGet, "/api/navigation", "user", ""))
	if len(user.Navigation) != 3 || user.Navigation[0].Path != "/dashboard" {
		t.Errorf("user navigation = %+v", user.Navigation)
	}
	if len(user.Exports) != 2 || len(user.Capabilities) != 1 {
		t.Errorf("user exports=%v capabilities=%v", user.Exports, user.Capabilities)
	}

	manager := decode[navigationResponse](t, do(t, s, http.MethodGet, "/api/navigation", "manager", ""))
	if len(manager.Navigation) != 5 || len(manager.Exports) != 8 || len(manager.Capabilities) != 3 {
		t.Errorf("manager navigation = %+v", manager)
	}
}

func TestReference(t *testing.T) {
	s := newTestServer(t, 1000)
	ref := decode[referenceDTO](t, do(t, s, http.MethodGet, "/api/reference", "user", ""))
	if len(ref.Departments) != 5 || len(ref.Categories) != 6 {
		t.Fatalf("reference = %+v", ref)
	}
	if ref.Departments[0].ID != "purchase" || !ref.Departments[0].Budget.Equal(decimal.NewFromInt(5000000)) {
		t.Errorf("first department = %+v", ref.Departments[0])
	}
}

type dashboardBody struct {
	Totals struct {
		TotalDirect    decimal.Decimal `json:"total_direct"`
		TotalIndirect  decimal.Decimal `json:"total_indirect"`
		TotalSpent     decimal.Decimal `json:"total_spent"`
		TotalRemaining decimal.Decimal `json:"total_remaining"`
	} `json:"totals"`
	Departments []struct {
		DepartmentID          string          `json:"department_id"`
		DirectCost            decimal.Decimal `json:"direct_cost"`
		AllocatedIndirectCost decimal.Decimal `json:"allocated_indirect_cost"`
	} `json:"departments"`
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, 1000)
	body := decode[dashboardBody](t, do(t, s, http.MethodGet, "/api/dashboard", "user", ""))

	if !body.Totals.TotalSpent.Equal(decimal.NewFromInt(3690000)) {
		t.Errorf("total spent = %s", body.Totals.TotalSpent)
	}
	if !body.Totals.TotalRemaining.Equal(decimal.NewFromInt(20310000)) {
		t.Errorf("total remaining = %s", body.Totals.TotalRemaining)
	}
	if len(body.Departments) != 5 {
		t.Fatalf("departments = %d", len(body.Departments))
	}
	ops := body.Departments[2]
	if ops.DepartmentID != "operations" || !ops.DirectCost.IsZero() || !ops.AllocatedIndirectCost.Equal(decimal.NewFromInt(96000)) {
		t.Errorf("operations = %+v", ops)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s := newTestServer(t, 1000)

	req := httptest.NewRequest(http.MethodPost, "/api/expenses",
		strings.NewReader(`{"department_id":"engineering","category_id":"materials","description":"  Bench  ","amount":"1234,50","date":"2025-03-01"}`))
	req.Header.Set(RoleHeader, "user")
	req.Header.Set(UserHeader, "ana@company.com")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[expenseDTO](t, rr)
	if created.Status != "pending" || created.Version != 1 || created.CreatedBy != "ana@company.com" || created.Description != "Bench" {
		t.Errorf("created = %+v", created)
	}
	if !created.Amount.Equal(decimal.RequireFromString("1234.50")) {
		t.Errorf("amount = %s", created.Amount)
	}
	if rr.Header().Get("Location") != "/api/expenses/"+created.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
	path := "/api/expenses/" + created.ID

	rr = do(t, s, http.MethodPatch, path, "user", `{"description":"Workbench","version":1}`)
	if rr.Code != http.StatusOK || decode[expenseDTO](t, rr).Version != 2 {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(t, s, http.MethodPatch, path, "user", `{"description":"Stale","version":1}`); rr.Code != http.StatusConflict {
		t.Errorf("stale patch status=%d", rr.Code)
	}

	rr = do(t, s, http.MethodPost, path+"/status", "manager", `{"status":"approved","version":2}`)
	if rr.Code != http.StatusOK || decode[expenseDTO](t, rr).Status != "approved" {
		t.Fatalf("approve status=%d body=%s", rr.Code, rr.Body)
	}
	dash := decode[dashboardBody](t, do(t, s, http.MethodGet, "/api/dashboard", "user", ""))
	if !dash.Totals.TotalDirect.Equal(decimal.RequireFromString("1711234.50")) {
		t.Errorf("total direct after approval = %s", dash.Totals.TotalDirect)
	}

	if rr := do(t, s, http.MethodDelete, path, "user", ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete status=%d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, path, "user", ""); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status=%d", rr.Code)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	const valid = `"department_id":"purchase","category_id":"materials","description":"Bolts","date":"2025-03-01","created_by":"ana"`
	tests := []struct {
		name string
		role string
		body string
		want int
	}{
		{"malformed json", "user", `{"amount":`, http.StatusBadRequest},
		{"unknown field", "user", `{` + valid + `,"amount":"1","colour":"red"}`, http.StatusBadRequest},
		{"empty body", "user", ``, http.StatusBadRequest},
		{"bad amount", "user", `{` + valid + `,"amount":"abc"}`, http.StatusUnprocessableEntity},
		{"negative amount", "user", `{` + valid + `,"amount":-5}`, http.StatusUnprocessableEntity},
		{"unknown department", "user", `{"department_id":"hr","category_id":"materials","description":"x","amount":"1","date":"2025-03-01","created_by":"ana"}`, http.StatusUnprocessableEntity},
		{"bad date", "user", `{"department_id":"purchase","category_id":"materials","description":"x","amount":"1","date":"01/03/2025","created_by":"ana"}`, http.StatusUnprocessableEntity},
		{"missing creator", "user", `{"department_id":"purchase","category_id":"materials","description":"x","amount":"1","date":"2025-03-01"}`, http.StatusUnprocessableEntity},
		{"user cannot pre-approve", "user", `{` + valid + `,"amount":"1","status":"approved"}`, http.StatusForbidden},
		{"manager may pre-approve", "manager", `{` + valid + `,"amount":"1","status":"approved"}`, http.StatusCreated},
		{"numeric amount", "user", `{` + valid + `,"amount":12.5}`, http.StatusCreated},
		{"zero amount", "user", `{` + valid + `,"amount":"0"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 1000)
			rr := do(t, s, http.MethodPost, "/api/expenses", tt.role, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
		})
	}
}

func TestIndirectCostLifecycle(t *testing.T) {
	s := newTestServer(t, 1000)

	rr := do(t, s, http.MethodPost, "/api/indirect-costs", "analyst",
		`{"category_id":"materials","description":"Wrong type","amount":"10","date":"2025-03-01"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("direct category status=%d", rr.Code)
	}

	rr = do(t, s, http.MethodPost, "/api/indirect-costs", "analyst",
		`{"category_id":"other","description":"Insurance","amount":"5000","date":"2025-03-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[indirectCostDTO](t, rr)
	if created.Policy != "equal" {
		t.Errorf("default policy = %q", created.Policy)
	}
	path := "/api/indirect-costs/" + created.ID

	rr = do(t, s, http.MethodPatch, path, "manager", `{"policy":"proportional"}`)
	if rr.Code != http.StatusOK || decode[indirectCostDTO](t, rr).Policy != "proportional" {
		t.Errorf("patch status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(t, s, http.MethodPatch, path, "manager", `{"policy":"random"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad policy status=%d", rr.Code)
	}
	if rr := do(t, s, http.MethodDelete, path, "analyst", ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete status=%d", rr.Code)
	}
	if rr := do(t, s, http.MethodDelete, path, "analyst", ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d", rr.Code)
	}
}

func TestReports(t *testing.T) {
	s := newTestServer(t, 1000)

	list := decode[reportListResponse](t, do(t, s, http.MethodGet, "/api/reports", "user", ""))
	if len(list.Reports) != 2 || list.Reports[0].CSV != "/api/reports/expenses.csv" {
		t.Errorf("user reports = %+v", list.Reports)
	}

	rr := do(t, s, http.MethodGet, "/api/reports/executive", "manager", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("executive status=%d", rr.Code)
	}
	if got := decode[map[string]any](t, rr)["kind"]; got != "executive" {
		t.Errorf("kind = %v", got)
	}

	rr = do(t, s, http.MethodGet, "/api/reports/budget-vs-actual.csv", "analyst", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("csv status=%d body=%s", rr.Code, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="budgetdash-budget-vs-actual-`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "\ufeffdepartment,budget,") {
		t.Errorf("csv should start with a BOM and the header: %q", rr.Body.String()[:40])
	}

	rr = do(t, s, http.MethodGet, "/api/reports/expenses.csv?bom=false&department=purchase", "user", "")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "id,department,") {
		t.Errorf("filtered expenses csv = %q", rr.Body.String())
	}

	if rr := do(t, s, http.MethodGet, "/api/reports/payroll", "manager", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown kind status=%d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/api/reports/expenses?from=yesterday", "user", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad filter status=%d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	for i := 0; i < 2; i++ {
		if rr := do(t, s, http.MethodGet, "/api/dashboard", "user", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, s, http.MethodGet, "/api/dashboard", "user", "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Errorf("status=%d Retry-After=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
}

func TestRateLimitForwardedFor(t *testing.T) {
	lanRequest := func(s *Server, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		req.RemoteAddr = "192.168.1.20:5000"
		req.Header.Set(RoleHeader, "user")
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		s.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("untrusted lan client shares one bucket", func(t *testing.T) {
		s := newTestServer(t, 1)
		if code := lanRequest(s, "203.0.113.1"); code != http.StatusOK {
			t.Fatalf("first status=%d", code)
		}
		if code := lanRequest(s, "203.0.113.2"); code != http.StatusTooManyRequests {
			t.Errorf("forged X-Forwarded-For status=%d, want 429", code)
		}
	})

	t.Run("configured proxy forwards client ip", func(t *testing.T) {
		res, err := backend.NewFactory(nil).CreateBackend(context.Background(), backend.Config{Type: backend.MemoryBackend}, nil)
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		s := NewServer(":0", res.Backend, Options{
			RateLimit:      ratelimit.Config{RequestsPerMinute: 1},
			TrustedProxies: []string{"192.168.0.0/16"},
		})
		t.Cleanup(func() {
			_ = s.Shutdown(context.Background())
			_ = res.Cleanup()
		})
		if code := lanRequest(s, "203.0.113.1"); code != http.StatusOK {
			t.Fatalf("first client status=%d", code)
		}
		if code := lanRequest(s, "203.0.113.2"); code != http.StatusOK {
			t.Errorf("second client status=%d, want 200", code)
		}
	})
}

func TestShutdownIsIdempotent(t *testing.T) {
	s := newTestServer(t, 1000)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
}
