package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"

	CostDirect   CostType = "direct"
	CostIndirect CostType = "indirect"

	PolicyEqual        AllocationPolicy = "equal"
	PolicyProportional AllocationPolicy = "proportional"
)

type (
	// Status is the approval state of an expense record.
	Status string

	// CostType classifies a category as a direct or an indirect cost.
	CostType string

	// AllocationPolicy tells the allocation engine how an indirect cost is
	// spread across departments.
	AllocationPolicy string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Department struct {
		ID     string
		Name   string
		Budget Money // annual
	}

	Category struct {
		ID   string
		Name string
		Type CostType
	}

	ExpenseRecord struct {
		ID           string
		DepartmentID string
		CategoryID   string
		Description  string
		Amount       Money
		Date         Date
		Status       Status
		CreatedBy    string
		Version      int64
	}

	// IndirectCostRecord is an organization-wide shared cost. It carries no
	// department and no approval gate: the engine distributes it to every
	// department.
	IndirectCostRecord struct {
		ID          string
		CategoryID  string
		Description string
		Amount      Money
		Date        Date
		Policy      AllocationPolicy
		Version     int64
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyDepartment   = errors.New("empty department")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyCreator      = errors.New("empty creator")
	ErrInvalidStatus     = errors.New("invalid approval status")
	ErrInvalidCostType   = errors.New("invalid cost type")
	ErrInvalidPolicy     = errors.New("invalid allocation policy")
	ErrUnknownDepartment = errors.New("unknown department")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrCategoryType      = errors.New("category type not allowed for this record")
)

const maxDescriptionLen = 200

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseStatus normalizes and validates an approval status.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

func (t CostType) Valid() bool {
	return t == CostDirect || t == CostIndirect
}

func ParseCostType(v string) (CostType, error) {
	t := CostType(strings.ToLower(strings.TrimSpace(v)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCostType, v)
	}
	return t, nil
}

func (p AllocationPolicy) Valid() bool {
	return p == PolicyEqual || p == PolicyProportional
}

func ParsePolicy(v string) (AllocationPolicy, error) {
	p := AllocationPolicy(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, v)
	}
	return p, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD; the zero date renders empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// MonthKey returns the YYYY-MM bucket of the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Validate accepts zero: record amounts are non-negative, not strictly positive.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Department) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrEmptyDepartment
	}
	if err := d.Budget.Validate(); err != nil {
		return fmt.Errorf("department %s budget: %w", d.ID, err)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCategory
	}
	if !c.Type.Valid() {
		return fmt.Errorf("category %s: %w", c.ID, ErrInvalidCostType)
	}
	return nil
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	if strings.TrimSpace(e.DepartmentID) == "" {
		return ErrEmptyDepartment
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if strings.TrimSpace(e.CreatedBy) == "" {
		return ErrEmptyCreator
	}
	return nil
}

func (c IndirectCostRecord) Validate() error {
	if strings.TrimSpace(c.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := validateDescription(c.Description); err != nil {
		return err
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if err := c.Date.Validate(); err != nil {
		return err
	}
	if !c.Policy.Valid() {
		return ErrInvalidPolicy
	}
	return nil
}
