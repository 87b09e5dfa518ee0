package allocation

import (
	"github.com/shopspring/decimal"

	"budgetdash/internal/core"
)

// Input is a consistent snapshot of reference data and records.
type Input struct {
	Departments   []core.Department
	Categories    []core.Category
	Expenses      []core.ExpenseRecord
	IndirectCosts []core.IndirectCostRecord
}

// Totals extends OrgTotals with budget figures for the whole organization.
type Totals struct {
	OrgTotals
	TotalBudget    decimal.Decimal `json:"total_budget"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	// Allocated is the part of TotalIndirect that reached a department.
	// Unallocated is the rest: non-zero only when there are no departments.
	Allocated   decimal.Decimal `json:"allocated_indirect"`
	Unallocated decimal.Decimal `json:"unallocated_indirect"`
	Utilization Utilization     `json:"utilization"`
}

// DepartmentShare is the part of one indirect cost assigned to a department.
type DepartmentShare struct {
	DepartmentID string          `json:"department_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// RecordShares explains how a single indirect cost was split.
type RecordShares struct {
	RecordID        string                `json:"record_id"`
	Policy          core.AllocationPolicy `json:"policy"`
	Amount          decimal.Decimal       `json:"amount"`
	FellBackToEqual bool                  `json:"fell_back_to_equal"`
	Shares          []DepartmentShare     `json:"shares"`
}

// ExclusionReason says why an expense did not count toward any department.
type ExclusionReason string

const (
	ReasonUnknownDepartment ExclusionReason = "unknown_department"
	ReasonUnknownCategory   ExclusionReason = "unknown_category"
)

// Exclusion is an approved expense that could not be attributed.
type Exclusion struct {
	RecordID string          `json:"record_id"`
	Reason   ExclusionReason `json:"reason"`
	Value    string          `json:"value"`
}

// Report is the full allocation view over one snapshot.
type Report struct {
	Departments []Result       `json:"departments"`
	Totals      Totals         `json:"totals"`
	Shares      []RecordShares `json:"shares"`
	Excluded    []Exclusion    `json:"excluded"`
}

// Compute runs the whole pipeline over a snapshot: direct costs, indirect
// allocation, per-department results, organization totals and the per-record
// share breakdown.
func Compute(in Input) Report {
	direct := ComputeDirectCosts(in.Departments, in.Expenses, in.Categories)
	allocated := AllocateIndirectCosts(in.Departments, in.IndirectCosts, direct)
	results := BuildAllocationResult(in.Departments, direct, allocated)
	org := ComputeOrgTotals(in.Expenses, in.IndirectCosts, in.Categories)

	budget := decimal.Zero
	for _, d := range in.Departments {
		budget = budget.Add(d.Budget.Decimal())
	}
	allocatedTotal := allocated.Sum(in.Departments)

	return Report{
		Departments: results,
		Totals: Totals{
			OrgTotals:      org,
			TotalBudget:    budget,
			TotalRemaining: budget.Sub(org.TotalSpent),
			Allocated:      allocatedTotal,
			Unallocated:    org.TotalIndirect.Sub(allocatedTotal),
			Utilization:    NewUtilization(org.TotalSpent, budget),
		},
		Shares:   ShareBreakdown(in.Departments, in.IndirectCosts, direct),
		Excluded: Exclusions(in),
	}
}

// ShareBreakdown lists, per indirect cost, the amount each department receives.
// Summing the breakdown per department gives AllocateIndirectCosts.
func ShareBreakdown(departments []core.Department, indirectCosts []core.IndirectCostRecord, directByDept Amounts) []RecordShares {
	out := make([]RecordShares, 0, len(indirectCosts))
	totalDirect := directByDept.Sum(departments)
	for _, c := range indirectCosts {
		shares, fellBack := recordShares(departments, c, directByDept, totalDirect)
		rs := RecordShares{
			RecordID:        c.ID,
			Policy:          c.Policy,
			Amount:          c.Amount.Decimal(),
			FellBackToEqual: fellBack,
			Shares:          make([]DepartmentShare, len(departments)),
		}
		for i, d := range departments {
			rs.Shares[i] = DepartmentShare{DepartmentID: d.ID, Amount: shares[i]}
		}
		out = append(out, rs)
	}
	return out
}

// Exclusions lists approved expenses whose department or category does not
// resolve. Such expenses contribute to no department's direct cost.
func Exclusions(in Input) []Exclusion {
	depts := make(map[string]struct{}, len(in.Departments))
	for _, d := range in.Departments {
		depts[d.ID] = struct{}{}
	}
	cats := categoryIndex(in.Categories)

	var out []Exclusion
	for _, e := range in.Expenses {
		if e.Status != core.StatusApproved {
			continue
		}
		if _, ok := depts[e.DepartmentID]; !ok {
			out = append(out, Exclusion{RecordID: e.ID, Reason: ReasonUnknownDepartment, Value: e.DepartmentID})
			continue
		}
		if _, ok := cats[e.CategoryID]; !ok {
			out = append(out, Exclusion{RecordID: e.ID, Reason: ReasonUnknownCategory, Value: e.CategoryID})
		}
	}
	return out
}
