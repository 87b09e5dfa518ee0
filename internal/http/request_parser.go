package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"budgetdash/internal/core"
	"budgetdash/internal/services"
)

// maxBodyBytes bounds request bodies; records are a handful of short fields.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("empty body")
		case errors.As(err, &maxErr):
			return badRequest("body larger than %d bytes", maxErr.Limit)
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON: trailing data")
	}
	return nil
}

// amountField accepts an amount as a JSON string ("12,50" or "12.50") or a
// JSON number. Numbers are read from their literal text, never via float64.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = amountField(data)
	return nil
}

func parseMoney(v amountField) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(sanitizeInput(string(v)))
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %w: %q", services.ErrInvalidRecord, err, string(v))
	}
	return core.Money{Cents: cents}, nil
}

func parseDate(v string) (core.Date, error) {
	d, err := core.ParseDate(sanitizeInput(v))
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %w", services.ErrInvalidRecord, err)
	}
	return d, nil
}

// sanitizeInput strips control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := sanitizeInput(*p)
	return &v
}

type createExpenseRequest struct {
	DepartmentID string      `json:"department_id"`
	CategoryID   string      `json:"category_id"`
	Description  string      `json:"description"`
	Amount       amountField `json:"amount"`
	Date         string      `json:"date"`
	Status       string      `json:"status"`
	CreatedBy    string      `json:"created_by"`
}

func (req createExpenseRequest) toInput() (services.NewExpense, error) {
	amount, err := parseMoney(req.Amount)
	if err != nil {
		return services.NewExpense{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return services.NewExpense{}, err
	}
	var status core.Status
	if s := sanitizeInput(req.Status); s != "" {
		if status, err = core.ParseStatus(s); err != nil {
			return services.NewExpense{}, fmt.Errorf("%w: %w", services.ErrInvalidRecord, err)
		}
	}
	return services.NewExpense{
		DepartmentID: sanitizeInput(req.DepartmentID),
		CategoryID:   sanitizeInput(req.CategoryID),
		Description:  sanitizeInput(req.Description),
		Amount:       amount,
		Date:         date,
		Status:       status,
		CreatedBy:    sanitizeInput(req.CreatedBy),
	}, nil
}

type updateExpenseRequest struct {
	DepartmentID *string      `json:"department_id"`
	CategoryID   *string      `json:"category_id"`
	Description  *string      `json:"description"`
	Amount       *amountField `json:"amount"`
	Date         *string      `json:"date"`
	Version      int64        `json:"version"`
}

func (req updateExpenseRequest) toPatch() (services.ExpensePatch, error) {
	p := services.ExpensePatch{
		DepartmentID: sanitizePtr(req.DepartmentID),
		CategoryID:   sanitizePtr(req.CategoryID),
		Description:  sanitizePtr(req.Description),
		Version:      req.Version,
	}
	if req.Amount != nil {
		m, err := parseMoney(*req.Amount)
		if err != nil {
			return services.ExpensePatch{}, err
		}
		p.Amount = &m
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return services.ExpensePatch{}, err
		}
		p.Date = &d
	}
	return p, nil
}

type statusRequest struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

func (req statusRequest) parse() (core.Status, error) {
	s, err := core.ParseStatus(sanitizeInput(req.Status))
	if err != nil {
		return "", fmt.Errorf("%w: %w", services.ErrInvalidRecord, err)
	}
	return s, nil
}

type createIndirectCostRequest struct {
	CategoryID  string      `json:"category_id"`
	Description string      `json:"description"`
	Amount      amountField `json:"amount"`
	Date        string      `json:"date"`
	Policy      string      `json:"policy"`
}

func (req createIndirectCostRequest) toInput() (services.NewIndirectCost, error) {
	amount, err := parseMoney(req.Amount)
	if err != nil {
		return services.NewIndirectCost{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return services.NewIndirectCost{}, err
	}
	policy, err := parsePolicy(req.Policy)
	if err != nil {
		return services.NewIndirectCost{}, err
	}
	return services.NewIndirectCost{
		CategoryID:  sanitizeInput(req.CategoryID),
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Date:        date,
		Policy:      policy,
	}, nil
}

// parsePolicy defaults an empty policy to equal.
func parsePolicy(v string) (core.AllocationPolicy, error) {
	v = sanitizeInput(v)
	if v == "" {
		return core.PolicyEqual, nil
	}
	p, err := core.ParsePolicy(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", services.ErrInvalidRecord, err)
	}
	return p, nil
}

type updateIndirectCostRequest struct {
	CategoryID  *string      `json:"category_id"`
	Description *string      `json:"description"`
	Amount      *amountField `json:"amount"`
	Date        *string      `json:"date"`
	Policy      *string      `json:"policy"`
	Version     int64        `json:"version"`
}

func (req updateIndirectCostRequest) toPatch() (services.IndirectCostPatch, error) {
	p := services.IndirectCostPatch{
		CategoryID:  sanitizePtr(req.CategoryID),
		Description: sanitizePtr(req.Description),
		Version:     req.Version,
	}
	if req.Amount != nil {
		m, err := parseMoney(*req.Amount)
		if err != nil {
			return services.IndirectCostPatch{}, err
		}
		p.Amount = &m
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return services.IndirectCostPatch{}, err
		}
		p.Date = &d
	}
	if req.Policy != nil {
		pol, err := core.ParsePolicy(sanitizeInput(*req.Policy))
		if err != nil {
			return services.IndirectCostPatch{}, fmt.Errorf("%w: %w", services.ErrInvalidRecord, err)
		}
		p.Policy = &pol
	}
	return p, nil
}
