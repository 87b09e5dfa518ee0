// Package allocation computes direct costs per department, distributes shared
// indirect costs across departments and aggregates the per-department and
// organization-wide totals shown by the dashboard, the allocation view and the
// reports.
//
// Every function here is a pure computation over the slices it is given: no
// input is mutated, nothing is cached, and repeated calls over the same input
// return identical values. Department ids are assumed unique.
package allocation

import (
	"github.com/shopspring/decimal"

	"budgetdash/internal/core"
)

// Amounts maps a department id to a monetary amount.
type Amounts map[string]decimal.Decimal

// Get returns the amount for a department, zero when absent.
func (a Amounts) Get(departmentID string) decimal.Decimal {
	if v, ok := a[departmentID]; ok {
		return v
	}
	return decimal.Zero
}

// Sum adds the amounts of the given departments in order.
func (a Amounts) Sum(departments []core.Department) decimal.Decimal {
	total := decimal.Zero
	for _, d := range departments {
		total = total.Add(a.Get(d.ID))
	}
	return total
}

// Result is the allocation outcome for one department.
type Result struct {
	DepartmentID          string          `json:"department_id"`
	DepartmentName        string          `json:"department_name"`
	Budget                decimal.Decimal `json:"budget"`
	DirectCost            decimal.Decimal `json:"direct_cost"`
	AllocatedIndirectCost decimal.Decimal `json:"allocated_indirect_cost"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	Remaining             decimal.Decimal `json:"remaining"`
	Utilization           Utilization     `json:"utilization"`
}

// OrgTotals are the organization-wide spend figures.
type OrgTotals struct {
	TotalDirect   decimal.Decimal `json:"total_direct"`
	TotalIndirect decimal.Decimal `json:"total_indirect"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
}

func categoryIndex(categories []core.Category) map[string]core.Category {
	idx := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx
}

// countsAsDirect reports whether an expense contributes to direct cost:
// approved, and its category resolves to a direct category. An unresolved
// category is treated as non-direct.
func countsAsDirect(e core.ExpenseRecord, categories map[string]core.Category) bool {
	if e.Status != core.StatusApproved {
		return false
	}
	c, ok := categories[e.CategoryID]
	return ok && c.Type == core.CostDirect
}

// ComputeDirectCosts sums approved direct-category expenses per department.
// Every department gets an entry, zero when nothing qualifies.
func ComputeDirectCosts(departments []core.Department, expenses []core.ExpenseRecord, categories []core.Category) Amounts {
	cats := categoryIndex(categories)
	out := make(Amounts, len(departments))
	for _, d := range departments {
		out[d.ID] = decimal.Zero
	}
	for _, e := range expenses {
		cur, known := out[e.DepartmentID]
		if !known || !countsAsDirect(e, cats) {
			continue
		}
		out[e.DepartmentID] = cur.Add(e.Amount.Decimal())
	}
	return out
}

// equalShare splits amount evenly over n departments. n must be positive.
func equalShare(amount decimal.Decimal, n int) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(int64(n)))
}

// recordShares returns the share of one indirect cost for each department, in
// department order, and whether a proportional record fell back to an equal
// split because no department has any direct cost.
func recordShares(departments []core.Department, c core.IndirectCostRecord, direct Amounts, totalDirect decimal.Decimal) ([]decimal.Decimal, bool) {
	shares := make([]decimal.Decimal, len(departments))
	if len(departments) == 0 {
		return shares, false
	}
	amount := c.Amount.Decimal()

	if c.Policy == core.PolicyProportional && totalDirect.IsPositive() {
		for i, d := range departments {
			shares[i] = amount.Mul(direct.Get(d.ID)).Div(totalDirect)
		}
		return shares, false
	}

	// Equal policy, and the proportional fallback when total direct is zero.
	// Unknown policies are split equally as well; validation rejects them on
	// ingestion.
	share := equalShare(amount, len(departments))
	for i := range shares {
		shares[i] = share
	}
	return shares, c.Policy == core.PolicyProportional
}

// AllocateIndirectCosts distributes every indirect cost over the departments
// and accumulates each department's shares. Category resolution plays no part.
// With no departments the result is empty and nothing is allocated.
func AllocateIndirectCosts(departments []core.Department, indirectCosts []core.IndirectCostRecord, directByDept Amounts) Amounts {
	out := make(Amounts, len(departments))
	for _, d := range departments {
		out[d.ID] = decimal.Zero
	}
	if len(departments) == 0 {
		return out
	}
	totalDirect := directByDept.Sum(departments)
	for _, c := range indirectCosts {
		shares, _ := recordShares(departments, c, directByDept, totalDirect)
		for i, d := range departments {
			out[d.ID] = out[d.ID].Add(shares[i])
		}
	}
	return out
}

// BuildAllocationResult joins each department's budget with its direct and
// allocated indirect cost. Utilization is left unclamped.
func BuildAllocationResult(departments []core.Department, directByDept, allocatedByDept Amounts) []Result {
	out := make([]Result, 0, len(departments))
	for _, d := range departments {
		budget := d.Budget.Decimal()
		direct := directByDept.Get(d.ID)
		allocated := allocatedByDept.Get(d.ID)
		total := direct.Add(allocated)
		out = append(out, Result{
			DepartmentID:          d.ID,
			DepartmentName:        d.Name,
			Budget:                budget,
			DirectCost:            direct,
			AllocatedIndirectCost: allocated,
			TotalCost:             total,
			Remaining:             budget.Sub(total),
			Utilization:           NewUtilization(total, budget),
		})
	}
	return out
}

// ComputeOrgTotals sums approved direct expenses and all indirect costs.
// Indirect costs carry no approval gate.
func ComputeOrgTotals(expenses []core.ExpenseRecord, indirectCosts []core.IndirectCostRecord, categories []core.Category) OrgTotals {
	cats := categoryIndex(categories)
	direct := decimal.Zero
	for _, e := range expenses {
		if countsAsDirect(e, cats) {
			direct = direct.Add(e.Amount.Decimal())
		}
	}
	indirect := decimal.Zero
	for _, c := range indirectCosts {
		indirect = indirect.Add(c.Amount.Decimal())
	}
	return OrgTotals{
		TotalDirect:   direct,
		TotalIndirect: indirect,
		TotalSpent:    direct.Add(indirect),
	}
}
