package http

import (
	"net/http"

	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/rbac"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.records.ListExpenses(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	out := make([]expenseDTO, 0, len(list))
	for _, e := range list {
		out = append(out, toExpenseDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.records.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	// Recording an expense as already decided is an approval.
	if in.Status != "" && in.Status != core.StatusPending && !roleFrom(r.Context()).Can(rbac.CapApproveExpenses) {
		forbidden(w, r, string(rbac.CapApproveExpenses))
		return
	}
	if in.CreatedBy == "" {
		in.CreatedBy = sanitizeInput(r.Header.Get(UserHeader))
	}

	e, err := s.records.CreateExpense(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/expenses/"+e.ID)
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req updateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	e, err := s.records.UpdateExpense(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleSetExpenseStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpStatus, err)
		return
	}
	status, err := req.parse()
	if err != nil {
		s.fail(w, r, log.OpStatus, err)
		return
	}
	e, err := s.records.SetExpenseStatus(r.Context(), r.PathValue("id"), status, req.Version)
	if err != nil {
		s.fail(w, r, log.OpStatus, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListIndirectCosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.records.ListIndirectCosts(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	out := make([]indirectCostDTO, 0, len(list))
	for _, c := range list {
		out = append(out, toIndirectCostDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetIndirectCost(w http.ResponseWriter, r *http.Request) {
	c, err := s.records.GetIndirectCost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toIndirectCostDTO(c))
}

func (s *Server) handleCreateIndirectCost(w http.ResponseWriter, r *http.Request) {
	var req createIndirectCostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	c, err := s.records.CreateIndirectCost(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/indirect-costs/"+c.ID)
	writeJSON(w, http.StatusCreated, toIndirectCostDTO(c))
}

func (s *Server) handleUpdateIndirectCost(w http.ResponseWriter, r *http.Request) {
	var req updateIndirectCostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	c, err := s.records.UpdateIndirectCost(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toIndirectCostDTO(c))
}

func (s *Server) handleDeleteIndirectCost(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteIndirectCost(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
