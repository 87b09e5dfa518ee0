package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/records"
	"budgetdash/internal/report"
	"budgetdash/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// The status line is already sent; an encode error means the client went away.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// errorStatus maps service and store errors to HTTP status codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, log.ErrorTypeValidation
	case errors.Is(err, services.ErrInvalidRecord):
		return http.StatusUnprocessableEntity, log.ErrorTypeValidation
	case errors.Is(err, records.ErrNotFound), errors.Is(err, report.ErrUnknownKind):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, records.ErrConflict), errors.Is(err, records.ErrAlreadyExists):
		return http.StatusConflict, log.ErrorTypeConflict
	}
	return http.StatusInternalServerError, log.ErrorTypeInternal
}

// fail logs err and writes the matching error response. Internal errors are
// not echoed to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errType := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithErrorType(errType))
		msg = "internal error"
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldError, err,
			log.FieldErrorType, errType)
	}
	writeError(w, status, msg)
}

type expenseDTO struct {
	ID           string          `json:"id"`
	DepartmentID string          `json:"department_id"`
	CategoryID   string          `json:"category_id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
	Status       core.Status     `json:"status"`
	CreatedBy    string          `json:"created_by"`
	Version      int64           `json:"version"`
}

func toExpenseDTO(e core.ExpenseRecord) expenseDTO {
	return expenseDTO{
		ID:           e.ID,
		DepartmentID: e.DepartmentID,
		CategoryID:   e.CategoryID,
		Description:  e.Description,
		Amount:       e.Amount.Decimal(),
		Date:         e.Date.String(),
		Status:       e.Status,
		CreatedBy:    e.CreatedBy,
		Version:      e.Version,
	}
}

type indirectCostDTO struct {
	ID          string                `json:"id"`
	CategoryID  string                `json:"category_id"`
	Description string                `json:"description"`
	Amount      decimal.Decimal       `json:"amount"`
	Date        string                `json:"date"`
	Policy      core.AllocationPolicy `json:"policy"`
	Version     int64                 `json:"version"`
}

func toIndirectCostDTO(c core.IndirectCostRecord) indirectCostDTO {
	return indirectCostDTO{
		ID:          c.ID,
		CategoryID:  c.CategoryID,
		Description: c.Description,
		Amount:      c.Amount.Decimal(),
		Date:        c.Date.String(),
		Policy:      c.Policy,
		Version:     c.Version,
	}
}

type departmentDTO struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Budget decimal.Decimal `json:"budget"`
}

type categoryDTO struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Type core.CostType `json:"type"`
}

type referenceDTO struct {
	Departments []departmentDTO `json:"departments"`
	Categories  []categoryDTO   `json:"categories"`
}
