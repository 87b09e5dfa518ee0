package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgetdash/internal/core"
	"budgetdash/internal/services"
)

func TestAmountField_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    amountField
		wantErr bool
	}{
		{"string with comma", `"12,50"`, "12,50", false},
		{"string with dot", `"12.50"`, "12.50", false},
		{"integer number", `15`, "15", false},
		{"decimal number keeps literal", `0.10`, "0.10", false},
		{"boolean", `true`, "", true},
		{"object", `{"v":1}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got amountField
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input   amountField
		want    int64
		wantErr bool
	}{
		{"12,34", 1234, false},
		{" 12.345 ", 1235, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"1e3", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMoney(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMoney(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, services.ErrInvalidRecord) || !errors.Is(err, core.ErrInvalidAmount) {
				t.Errorf("parseMoney(%q) error %v should wrap both sentinels", tt.input, err)
			}
			continue
		}
		if got.Cents != tt.want {
			t.Errorf("parseMoney(%q) = %d, want %d", tt.input, got.Cents, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  plain  ", "plain"},
		{"tab\tkept", "tab\tkept"},
		{"bell\x07gone", "bellgone"},
		{"null\x00byte", "nullbyte"},
		{"multi\nline", "multi\nline"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"status":"approved","version":3}`, false},
		{"empty", ``, true},
		{"unknown field", `{"status":"approved","extra":1}`, true},
		{"trailing object", `{"status":"approved"}{"status":"rejected"}`, true},
		{"wrong type", `{"version":"three"}`, true},
		{"too large", `{"status":"` + strings.Repeat("a", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v statusRequest
			err := decodeJSON(httptest.NewRecorder(), req, &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errBadRequest) {
				t.Errorf("error %v should wrap errBadRequest", err)
			}
			if !tt.wantErr && (v.Status != "approved" || v.Version != 3) {
				t.Errorf("decoded = %+v", v)
			}
		})
	}
}

func TestCreateIndirectCostRequest_DefaultsPolicy(t *testing.T) {
	req := createIndirectCostRequest{CategoryID: "utilities", Description: "Gas", Amount: "10", Date: "2025-01-31"}
	in, err := req.toInput()
	if err != nil {
		t.Fatalf("toInput() error = %v", err)
	}
	if in.Policy != core.PolicyEqual {
		t.Errorf("policy = %q, want equal", in.Policy)
	}

	req.Policy = "weighted"
	if _, err := req.toInput(); !errors.Is(err, services.ErrInvalidRecord) {
		t.Errorf("unknown policy error = %v", err)
	}
}

func TestUpdateExpenseRequest_ToPatch(t *testing.T) {
	desc := " New\x01 name "
	amount := amountField("7,5")
	p, err := updateExpenseRequest{Description: &desc, Amount: &amount, Version: 4}.toPatch()
	if err != nil {
		t.Fatalf("toPatch() error = %v", err)
	}
	if p.Description == nil || *p.Description != "New name" {
		t.Errorf("description = %v", p.Description)
	}
	if p.Amount == nil || p.Amount.Cents != 750 {
		t.Errorf("amount = %v", p.Amount)
	}
	if p.DepartmentID != nil || p.Date != nil || p.Version != 4 {
		t.Errorf("patch = %+v", p)
	}

	bad := "31/01/2025"
	if _, err := (updateExpenseRequest{Date: &bad}).toPatch(); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("bad date error = %v", err)
	}
}
