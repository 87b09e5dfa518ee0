package http

import (
	"context"
	"net/http"
	"time"

	"budgetdash/internal/allocation"
	"budgetdash/internal/log"
	"budgetdash/internal/rbac"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the record store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"store": "ok", "events": "disabled"}
	if err := s.backend.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
	}
	if s.backend.Publishing {
		checks["events"] = "ok"
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	out := referenceDTO{Departments: []departmentDTO{}, Categories: []categoryDTO{}}
	for _, d := range s.catalog.Departments() {
		out.Departments = append(out.Departments, departmentDTO{ID: d.ID, Name: d.Name, Budget: d.Budget.Decimal()})
	}
	for _, c := range s.catalog.Categories() {
		out.Categories = append(out.Categories, categoryDTO{ID: c.ID, Name: c.Name, Type: c.Type})
	}
	writeJSON(w, http.StatusOK, out)
}

type navigationResponse struct {
	Role         rbac.Role         `json:"role"`
	Navigation   []rbac.NavItem    `json:"navigation"`
	Exports      []rbac.Export     `json:"exports"`
	Capabilities []rbac.Capability `json:"capabilities"`
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	role := roleFrom(r.Context())
	caps := []rbac.Capability{}
	for _, c := range []rbac.Capability{rbac.CapRecordExpenses, rbac.CapManageIndirectCosts, rbac.CapApproveExpenses} {
		if role.Can(c) {
			caps = append(caps, c)
		}
	}
	writeJSON(w, http.StatusOK, navigationResponse{
		Role:         role,
		Navigation:   role.Navigation(),
		Exports:      role.Exports(),
		Capabilities: caps,
	})
}

type dashboardResponse struct {
	Totals      allocation.Totals   `json:"totals"`
	Departments []allocation.Result `json:"departments"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rep, err := s.allocation.Compute(r.Context())
	if err != nil {
		s.fail(w, r, log.OpAllocate, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Totals: rep.Totals, Departments: rep.Departments})
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	rep, err := s.allocation.Compute(r.Context())
	if err != nil {
		s.fail(w, r, log.OpAllocate, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
