package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetdash/internal/backend"
	"budgetdash/internal/log"
	"budgetdash/internal/middleware/ratelimit"
	"budgetdash/internal/middleware/security"
	"budgetdash/internal/middleware/trace"
	"budgetdash/internal/rbac"
	"budgetdash/internal/reference"
	"budgetdash/internal/services"
)

// Options tune the server's middleware.
type Options struct {
	RateLimit      ratelimit.Config
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	backend    *backend.Backend
	records    *services.RecordService
	allocation *services.AllocationService
	catalog    *reference.Catalog
	logger     *log.Logger
	events     *log.StructuredLogger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, b *backend.Backend, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		backend:    b,
		records:    b.Records,
		allocation: b.Allocation,
		catalog:    b.Allocation.Catalog(),
		logger:     logger,
		events:     log.NewStructuredLogger(logger),
		detector:   detector,
		limiter:    ratelimit.NewLimiter(opts.RateLimit, logger),
		tracer:     trace.NewMiddleware(detector.ExtractClientIP, logger),
		started:    time.Now(),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/reference", s.handleReference)
	api.HandleFunc("GET /api/navigation", s.handleNavigation)
	api.HandleFunc("GET /api/dashboard", s.requireView(rbac.ViewDashboard, s.handleDashboard))
	api.HandleFunc("GET /api/allocation", s.requireView(rbac.ViewCostAllocation, s.handleAllocation))

	api.HandleFunc("GET /api/expenses", s.requireView(rbac.ViewExpenses, s.handleListExpenses))
	api.HandleFunc("POST /api/expenses", s.requireCapability(rbac.CapRecordExpenses, s.handleCreateExpense))
	api.HandleFunc("GET /api/expenses/{id}", s.requireView(rbac.ViewExpenses, s.handleGetExpense))
	api.HandleFunc("PATCH /api/expenses/{id}", s.requireCapability(rbac.CapRecordExpenses, s.handleUpdateExpense))
	api.HandleFunc("DELETE /api/expenses/{id}", s.requireCapability(rbac.CapRecordExpenses, s.handleDeleteExpense))
	api.HandleFunc("POST /api/expenses/{id}/status", s.requireCapability(rbac.CapApproveExpenses, s.handleSetExpenseStatus))

	api.HandleFunc("GET /api/indirect-costs", s.requireView(rbac.ViewCostAllocation, s.handleListIndirectCosts))
	api.HandleFunc("POST /api/indirect-costs", s.requireCapability(rbac.CapManageIndirectCosts, s.handleCreateIndirectCost))
	api.HandleFunc("GET /api/indirect-costs/{id}", s.requireView(rbac.ViewCostAllocation, s.handleGetIndirectCost))
	api.HandleFunc("PATCH /api/indirect-costs/{id}", s.requireCapability(rbac.CapManageIndirectCosts, s.handleUpdateIndirectCost))
	api.HandleFunc("DELETE /api/indirect-costs/{id}", s.requireCapability(rbac.CapManageIndirectCosts, s.handleDeleteIndirectCost))

	api.HandleFunc("GET /api/reports", s.handleListReports)
	api.HandleFunc("GET /api/reports/{kind}", s.handleReport)

	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	mux.Handle("/api/", s.withRole(api))

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown stops background goroutines and then the HTTP server. It is safe
// to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
