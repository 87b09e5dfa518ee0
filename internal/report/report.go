// Package report builds the dashboard's report kinds from a snapshot of
// reference data and records, in a structured form for JSON and a flat
// Table form for CSV export.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"budgetdash/internal/allocation"
	"budgetdash/internal/core"
	"budgetdash/internal/rbac"
	"budgetdash/internal/reference"
)

// Kind identifies a report; it doubles as the export permission name.
type Kind = rbac.Export

var ErrUnknownKind = errors.New("unknown report kind")

// topDepartments is how many departments the executive summary lists.
const topDepartments = 5

// Snapshot is the data every report is computed from.
type Snapshot struct {
	Catalog       *reference.Catalog
	Expenses      []core.ExpenseRecord
	IndirectCosts []core.IndirectCostRecord
}

// Allocation runs the allocation engine over the snapshot.
func (s Snapshot) Allocation() allocation.Report {
	return allocation.Compute(allocation.Input{
		Departments:   s.Catalog.Departments(),
		Categories:    s.Catalog.Categories(),
		Expenses:      s.Expenses,
		IndirectCosts: s.IndirectCosts,
	})
}

// Report is a built report of any kind.
type Report interface {
	Kind() Kind
	Table() Table
}

// ParseKind accepts a kind name with or without a ".csv" suffix.
func ParseKind(v string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(v)), ".csv"))
	for _, known := range rbac.AllExports() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, v)
}

// Build computes one report kind. The filter applies to expense-based
// figures; allocation-based figures always cover the whole snapshot.
func Build(kind Kind, s Snapshot, f Filter) (Report, error) {
	switch kind {
	case rbac.ExportExpenses:
		return BuildExpenseListing(s, f), nil
	case rbac.ExportDepartments:
		return BuildDepartmentSummary(s, f), nil
	case rbac.ExportCategories:
		return BuildCategorySummary(s, f), nil
	case rbac.ExportBudgetVsActual:
		return BuildBudgetVsActual(s), nil
	case rbac.ExportDirectIndirect:
		return BuildDirectIndirect(s, f), nil
	case rbac.ExportApprovalStatus:
		return BuildApprovalStatus(s, f), nil
	case rbac.ExportMonthlyTrend:
		return BuildMonthlyTrend(s, f), nil
	case rbac.ExportExecutive:
		return BuildExecutive(s), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func approved(expenses []core.ExpenseRecord) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, 0, len(expenses))
	for _, e := range expenses {
		if e.Status == core.StatusApproved {
			out = append(out, e)
		}
	}
	return out
}

func isDirect(c *reference.Catalog, categoryID string) bool {
	cat, ok := c.Category(categoryID)
	return ok && cat.Type == core.CostDirect
}

// percentOf returns part/whole*100, zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}

func utilizationCell(u allocation.Utilization) string {
	if !u.Applicable() {
		return ""
	}
	return u.Percent().StringFixed(2)
}

// ExpenseRow is one approved expense with resolved names.
type ExpenseRow struct {
	ID           string          `json:"id"`
	DepartmentID string          `json:"department_id"`
	Department   string          `json:"department"`
	CategoryID   string          `json:"category_id"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
	Status       core.Status     `json:"status"`
	CreatedBy    string          `json:"created_by"`
}

// ExpenseListing lists the approved expenses matching the filter.
type ExpenseListing struct {
	Rows  []ExpenseRow    `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

func BuildExpenseListing(s Snapshot, f Filter) ExpenseListing {
	out := ExpenseListing{Rows: []ExpenseRow{}, Total: decimal.Zero}
	for _, e := range approved(f.Apply(s.Expenses)) {
		out.Rows = append(out.Rows, ExpenseRow{
			ID:           e.ID,
			DepartmentID: e.DepartmentID,
			Department:   s.Catalog.DepartmentName(e.DepartmentID),
			CategoryID:   e.CategoryID,
			Category:     s.Catalog.CategoryName(e.CategoryID),
			Description:  e.Description,
			Amount:       e.Amount.Decimal(),
			Date:         e.Date.String(),
			Status:       e.Status,
			CreatedBy:    e.CreatedBy,
		})
		out.Total = out.Total.Add(e.Amount.Decimal())
	}
	return out
}

func (ExpenseListing) Kind() Kind { return rbac.ExportExpenses }

func (r ExpenseListing) Table() Table {
	t := Table{Columns: []string{"id", "department", "category", "description", "amount", "date", "status", "created_by"}}
	for _, row := range r.Rows {
		t.add(row.ID, row.Department, row.Category, row.Description, amount(row.Amount), row.Date, string(row.Status), row.CreatedBy)
	}
	return t
}

// DepartmentRow is a department's budget against its approved expenses.
type DepartmentRow struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Budget      decimal.Decimal        `json:"budget"`
	Spent       decimal.Decimal        `json:"spent"`
	Remaining   decimal.Decimal        `json:"remaining"`
	Utilization allocation.Utilization `json:"utilization"`
}

// DepartmentSummary sums approved expenses of every category per department.
// Indirect allocations are not included; see BudgetVsActual for those.
type DepartmentSummary struct {
	Rows []DepartmentRow `json:"rows"`
}

func BuildDepartmentSummary(s Snapshot, f Filter) DepartmentSummary {
	spent := make(map[string]decimal.Decimal)
	for _, e := range approved(f.Apply(s.Expenses)) {
		spent[e.DepartmentID] = spent[e.DepartmentID].Add(e.Amount.Decimal())
	}
	out := DepartmentSummary{Rows: []DepartmentRow{}}
	for _, d := range s.Catalog.Departments() {
		budget := d.Budget.Decimal()
		sp := spent[d.ID]
		out.Rows = append(out.Rows, DepartmentRow{
			ID:          d.ID,
			Name:        d.Name,
			Budget:      budget,
			Spent:       sp,
			Remaining:   budget.Sub(sp),
			Utilization: allocation.NewUtilization(sp, budget),
		})
	}
	return out
}

func (DepartmentSummary) Kind() Kind { return rbac.ExportDepartments }

func (r DepartmentSummary) Table() Table {
	t := Table{Columns: []string{"department", "budget", "spent", "remaining", "utilization_percent"}}
	for _, row := range r.Rows {
		t.add(row.Name, amount(row.Budget), amount(row.Spent), amount(row.Remaining), utilizationCell(row.Utilization))
	}
	return t
}

// CategoryRow is the approved spend booked under one category.
type CategoryRow struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  core.CostType   `json:"type"`
	Spent decimal.Decimal `json:"spent"`
}

type CategorySummary struct {
	Rows []CategoryRow `json:"rows"`
}

func BuildCategorySummary(s Snapshot, f Filter) CategorySummary {
	spent := make(map[string]decimal.Decimal)
	for _, e := range approved(f.Apply(s.Expenses)) {
		spent[e.CategoryID] = spent[e.CategoryID].Add(e.Amount.Decimal())
	}
	out := CategorySummary{Rows: []CategoryRow{}}
	for _, c := range s.Catalog.Categories() {
		out.Rows = append(out.Rows, CategoryRow{ID: c.ID, Name: c.Name, Type: c.Type, Spent: spent[c.ID]})
	}
	return out
}

func (CategorySummary) Kind() Kind { return rbac.ExportCategories }

func (r CategorySummary) Table() Table {
	t := Table{Columns: []string{"category", "cost_type", "spent"}}
	for _, row := range r.Rows {
		t.add(row.Name, string(row.Type), amount(row.Spent))
	}
	return t
}

// BudgetVsActual compares each budget with the allocated total cost: direct
// cost plus the department's share of indirect costs.
type BudgetVsActual struct {
	Rows   []allocation.Result `json:"rows"`
	Totals allocation.Totals   `json:"totals"`
}

func BuildBudgetVsActual(s Snapshot) BudgetVsActual {
	a := s.Allocation()
	return BudgetVsActual{Rows: a.Departments, Totals: a.Totals}
}

func (BudgetVsActual) Kind() Kind { return rbac.ExportBudgetVsActual }

func (r BudgetVsActual) Table() Table {
	t := Table{Columns: []string{"department", "budget", "direct_cost", "allocated_indirect_cost", "actual", "variance", "utilization_percent"}}
	for _, row := range r.Rows {
		t.add(row.DepartmentName, amount(row.Budget), amount(row.DirectCost), amount(row.AllocatedIndirectCost),
			amount(row.TotalCost), amount(row.Remaining), utilizationCell(row.Utilization))
	}
	tot := r.Totals
	t.add("total", amount(tot.TotalBudget), amount(tot.TotalDirect), amount(tot.Allocated),
		amount(tot.TotalSpent), amount(tot.TotalRemaining), utilizationCell(tot.Utilization))
	return t
}

// CategoryAmount is a total booked under one category.
type CategoryAmount struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// DepartmentCost splits a department's cost into direct and allocated indirect.
type DepartmentCost struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Direct   decimal.Decimal `json:"direct"`
	Indirect decimal.Decimal `json:"indirect"`
	Total    decimal.Decimal `json:"total"`
}

// DirectIndirect breaks total cost into its direct and indirect parts.
type DirectIndirect struct {
	TotalDirect        decimal.Decimal  `json:"total_direct"`
	TotalIndirect      decimal.Decimal  `json:"total_indirect"`
	DirectPercent      decimal.Decimal  `json:"direct_percent"`
	IndirectPercent    decimal.Decimal  `json:"indirect_percent"`
	DirectByCategory   []CategoryAmount `json:"direct_by_category"`
	IndirectByCategory []CategoryAmount `json:"indirect_by_category"`
	Departments        []DepartmentCost `json:"departments"`
}

func BuildDirectIndirect(s Snapshot, f Filter) DirectIndirect {
	directByCat := make(map[string]decimal.Decimal)
	totalDirect := decimal.Zero
	for _, e := range approved(f.Apply(s.Expenses)) {
		if !isDirect(s.Catalog, e.CategoryID) {
			continue
		}
		directByCat[e.CategoryID] = directByCat[e.CategoryID].Add(e.Amount.Decimal())
		totalDirect = totalDirect.Add(e.Amount.Decimal())
	}
	indirectByCat := make(map[string]decimal.Decimal)
	totalIndirect := decimal.Zero
	for _, c := range s.IndirectCosts {
		indirectByCat[c.CategoryID] = indirectByCat[c.CategoryID].Add(c.Amount.Decimal())
		totalIndirect = totalIndirect.Add(c.Amount.Decimal())
	}

	total := totalDirect.Add(totalIndirect)
	out := DirectIndirect{
		TotalDirect:        totalDirect,
		TotalIndirect:      totalIndirect,
		DirectPercent:      percentOf(totalDirect, total),
		IndirectPercent:    percentOf(totalIndirect, total),
		DirectByCategory:   []CategoryAmount{},
		IndirectByCategory: []CategoryAmount{},
		Departments:        []DepartmentCost{},
	}
	for _, c := range s.Catalog.CategoriesOf(core.CostDirect) {
		out.DirectByCategory = append(out.DirectByCategory, CategoryAmount{ID: c.ID, Name: c.Name, Amount: directByCat[c.ID]})
	}
	for _, c := range s.Catalog.CategoriesOf(core.CostIndirect) {
		out.IndirectByCategory = append(out.IndirectByCategory, CategoryAmount{ID: c.ID, Name: c.Name, Amount: indirectByCat[c.ID]})
	}
	for _, r := range s.Allocation().Departments {
		out.Departments = append(out.Departments, DepartmentCost{
			ID:       r.DepartmentID,
			Name:     r.DepartmentName,
			Direct:   r.DirectCost,
			Indirect: r.AllocatedIndirectCost,
			Total:    r.TotalCost,
		})
	}
	return out
}

func (DirectIndirect) Kind() Kind { return rbac.ExportDirectIndirect }

func (r DirectIndirect) Table() Table {
	t := Table{Columns: []string{"department", "direct_cost", "allocated_indirect_cost", "total_cost"}}
	for _, d := range r.Departments {
		t.add(d.Name, amount(d.Direct), amount(d.Indirect), amount(d.Total))
	}
	return t
}

// StatusRow counts expenses in one approval state.
type StatusRow struct {
	Status core.Status     `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type ApprovalStatus struct {
	Rows        []StatusRow     `json:"rows"`
	TotalCount  int             `json:"total_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func BuildApprovalStatus(s Snapshot, f Filter) ApprovalStatus {
	order := []core.Status{core.StatusApproved, core.StatusPending, core.StatusRejected}
	idx := make(map[core.Status]int, len(order))
	out := ApprovalStatus{TotalAmount: decimal.Zero}
	for i, st := range order {
		idx[st] = i
		out.Rows = append(out.Rows, StatusRow{Status: st, Amount: decimal.Zero})
	}
	for _, e := range f.Apply(s.Expenses) {
		i, ok := idx[e.Status]
		if !ok {
			continue
		}
		out.Rows[i].Count++
		out.Rows[i].Amount = out.Rows[i].Amount.Add(e.Amount.Decimal())
		out.TotalCount++
		out.TotalAmount = out.TotalAmount.Add(e.Amount.Decimal())
	}
	return out
}

func (ApprovalStatus) Kind() Kind { return rbac.ExportApprovalStatus }

func (r ApprovalStatus) Table() Table {
	t := Table{Columns: []string{"status", "count", "amount"}}
	for _, row := range r.Rows {
		t.add(string(row.Status), count(row.Count), amount(row.Amount))
	}
	t.add("total", count(r.TotalCount), amount(r.TotalAmount))
	return t
}

// MonthRow is one YYYY-MM bucket of approved expenses.
type MonthRow struct {
	Month     string          `json:"month"`
	Direct    decimal.Decimal `json:"direct"`
	NonDirect decimal.Decimal `json:"non_direct"`
	Total     decimal.Decimal `json:"total"`
}

// MonthlyTrend buckets expenses by month. Only approved amounts count, but a
// month with only unapproved expenses still appears with zero totals.
// Expenses whose category is unknown count as non-direct.
type MonthlyTrend struct {
	Rows []MonthRow `json:"rows"`
}

func BuildMonthlyTrend(s Snapshot, f Filter) MonthlyTrend {
	buckets := make(map[string]*MonthRow)
	for _, e := range f.Apply(s.Expenses) {
		key := e.Date.MonthKey()
		row, ok := buckets[key]
		if !ok {
			row = &MonthRow{Month: key, Direct: decimal.Zero, NonDirect: decimal.Zero, Total: decimal.Zero}
			buckets[key] = row
		}
		if e.Status != core.StatusApproved {
			continue
		}
		amt := e.Amount.Decimal()
		if isDirect(s.Catalog, e.CategoryID) {
			row.Direct = row.Direct.Add(amt)
		} else {
			row.NonDirect = row.NonDirect.Add(amt)
		}
		row.Total = row.Total.Add(amt)
	}
	out := MonthlyTrend{Rows: make([]MonthRow, 0, len(buckets))}
	for _, row := range buckets {
		out.Rows = append(out.Rows, *row)
	}
	sort.Slice(out.Rows, func(i, j int) bool { return out.Rows[i].Month < out.Rows[j].Month })
	return out
}

func (MonthlyTrend) Kind() Kind { return rbac.ExportMonthlyTrend }

func (r MonthlyTrend) Table() Table {
	t := Table{Columns: []string{"month", "direct", "non_direct", "total"}}
	for _, row := range r.Rows {
		t.add(row.Month, amount(row.Direct), amount(row.NonDirect), amount(row.Total))
	}
	return t
}

// Executive is the organization-wide summary for managers.
type Executive struct {
	Totals         allocation.Totals   `json:"totals"`
	Approved       int                 `json:"approved_count"`
	Pending        int                 `json:"pending_count"`
	Rejected       int                 `json:"rejected_count"`
	TopDepartments []allocation.Result `json:"top_departments"`
}

func BuildExecutive(s Snapshot) Executive {
	a := s.Allocation()
	out := Executive{Totals: a.Totals}
	for _, e := range s.Expenses {
		switch e.Status {
		case core.StatusApproved:
			out.Approved++
		case core.StatusPending:
			out.Pending++
		case core.StatusRejected:
			out.Rejected++
		}
	}
	top := append([]allocation.Result(nil), a.Departments...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].TotalCost.GreaterThan(top[j].TotalCost) })
	if len(top) > topDepartments {
		top = top[:topDepartments]
	}
	out.TopDepartments = top
	return out
}

func (Executive) Kind() Kind { return rbac.ExportExecutive }

func (r Executive) Table() Table {
	t := Table{Columns: []string{"item", "value"}}
	tot := r.Totals
	t.add("total_budget", amount(tot.TotalBudget))
	t.add("total_spent", amount(tot.TotalSpent))
	t.add("remaining", amount(tot.TotalRemaining))
	t.add("direct_cost", amount(tot.TotalDirect))
	t.add("indirect_cost", amount(tot.TotalIndirect))
	t.add("utilization_percent", utilizationCell(tot.Utilization))
	t.add("approved_expenses", count(r.Approved))
	t.add("pending_expenses", count(r.Pending))
	t.add("rejected_expenses", count(r.Rejected))
	return t
}
