package allocation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetdash/internal/core"
)

var (
	catMaterials = core.Category{ID: "materials", Name: "Materials", Type: core.CostDirect}
	catUtilities = core.Category{ID: "utilities", Name: "Utilities", Type: core.CostIndirect}
	categories   = []core.Category{catMaterials, catUtilities}
)

func dept(id string, budget int64) core.Department {
	return core.Department{ID: id, Name: id, Budget: core.NewMoney(budget)}
}

func expense(id, deptID, catID string, amount int64, status core.Status) core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:           id,
		DepartmentID: deptID,
		CategoryID:   catID,
		Description:  id,
		Amount:       core.NewMoney(amount),
		Date:         core.NewDate(2025, 1, 15),
		Status:       status,
		CreatedBy:    "user@company.com",
	}
}

func indirect(id string, amount int64, policy core.AllocationPolicy) core.IndirectCostRecord {
	return core.IndirectCostRecord{
		ID:          id,
		CategoryID:  catUtilities.ID,
		Description: id,
		Amount:      core.NewMoney(amount),
		Date:        core.NewDate(2025, 1, 31),
		Policy:      policy,
	}
}

func decEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	w := decimal.RequireFromString(want)
	assert.True(t, w.Equal(got), "want %s, got %s", w, got)
}

func decNear(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	tolerance := decimal.New(1, -6)
	assert.True(t, want.Sub(got).Abs().LessThanOrEqual(tolerance), "want %s, got %s", want, got)
}

func TestComputeDirectCosts_Gating(t *testing.T) {
	departments := []core.Department{dept("a", 1000), dept("b", 1000)}
	expenses := []core.ExpenseRecord{
		expense("e1", "a", "materials", 100, core.StatusApproved),
		expense("e2", "a", "materials", 200, core.StatusPending),
		expense("e3", "a", "materials", 300, core.StatusRejected),
		expense("e4", "a", "utilities", 400, core.StatusApproved),
		expense("e5", "a", "unknown", 500, core.StatusApproved),
		expense("e6", "ghost", "materials", 600, core.StatusApproved),
		expense("e7", "a", "materials", 50, core.StatusApproved),
	}

	got := ComputeDirectCosts(departments, expenses, categories)

	require.Len(t, got, 2)
	decEqual(t, "150", got["a"])
	decEqual(t, "0", got["b"])
}

func TestComputeDirectCosts_DoesNotMutateInput(t *testing.T) {
	departments := []core.Department{dept("a", 1000)}
	expenses := []core.ExpenseRecord{expense("e1", "a", "materials", 100, core.StatusApproved)}
	before := append([]core.ExpenseRecord(nil), expenses...)

	ComputeDirectCosts(departments, expenses, categories)

	assert.Equal(t, before, expenses)
}

func TestAllocateIndirectCosts_EqualSplitConserves(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			departments := make([]core.Department, n)
			for i := range departments {
				departments[i] = dept(fmt.Sprintf("d%d", i), 1000)
			}
			costs := []core.IndirectCostRecord{indirect("c1", 100000, core.PolicyEqual)}

			got := AllocateIndirectCosts(departments, costs, Amounts{})

			want := decimal.NewFromInt(100000).Div(decimal.NewFromInt(int64(n)))
			for _, d := range departments {
				assert.True(t, want.Equal(got[d.ID]), "department %s: want %s, got %s", d.ID, want, got[d.ID])
			}
			decNear(t, decimal.NewFromInt(100000), got.Sum(departments))
		})
	}
}

func TestAllocateIndirectCosts_ProportionalPreservesRatios(t *testing.T) {
	departments := []core.Department{dept("a", 1000), dept("b", 1000), dept("c", 1000)}
	direct := Amounts{
		"a": decimal.NewFromInt(100),
		"b": decimal.NewFromInt(300),
		"c": decimal.Zero,
	}
	costs := []core.IndirectCostRecord{indirect("c1", 1000, core.PolicyProportional)}

	got := AllocateIndirectCosts(departments, costs, direct)

	decEqual(t, "250", got["a"])
	decEqual(t, "750", got["b"])
	decEqual(t, "0", got["c"])
	decNear(t, decimal.NewFromInt(1000), got.Sum(departments))
	// share_a / share_b == direct_a / direct_b
	assert.True(t, got["a"].Div(got["b"]).Equal(direct["a"].Div(direct["b"])))
}

func TestAllocateIndirectCosts_ProportionalZeroDirectFallsBackToEqual(t *testing.T) {
	departments := []core.Department{dept("a", 1000), dept("b", 1000), dept("c", 1000)}

	proportional := AllocateIndirectCosts(departments,
		[]core.IndirectCostRecord{indirect("c1", 1000, core.PolicyProportional)}, Amounts{})
	equal := AllocateIndirectCosts(departments,
		[]core.IndirectCostRecord{indirect("c1", 1000, core.PolicyEqual)}, Amounts{})

	for _, d := range departments {
		assert.True(t, proportional[d.ID].Equal(equal[d.ID]), "department %s", d.ID)
	}
}

func TestAllocateIndirectCosts_NoDepartments(t *testing.T) {
	got := AllocateIndirectCosts(nil, []core.IndirectCostRecord{indirect("c1", 1000, core.PolicyEqual)}, Amounts{})
	assert.Empty(t, got)
}

func TestAllocateIndirectCosts_AccumulatesMixedPolicies(t *testing.T) {
	departments := []core.Department{dept("a", 1000), dept("b", 1000)}
	direct := Amounts{"a": decimal.NewFromInt(100), "b": decimal.NewFromInt(300)}
	costs := []core.IndirectCostRecord{
		indirect("c1", 50, core.PolicyEqual),
		indirect("c2", 80, core.PolicyProportional),
		indirect("c3", 10, core.PolicyEqual),
	}

	got := AllocateIndirectCosts(departments, costs, direct)

	decEqual(t, "50", got["a"]) // 25 + 20 + 5
	decEqual(t, "90", got["b"]) // 25 + 60 + 5
	decEqual(t, "140", got.Sum(departments))
}

func TestAllocateIndirectCosts_IgnoresCategoryResolution(t *testing.T) {
	departments := []core.Department{dept("a", 1000), dept("b", 1000)}
	c := indirect("c1", 100, core.PolicyEqual)
	c.CategoryID = "does-not-exist"

	got := AllocateIndirectCosts(departments, []core.IndirectCostRecord{c}, Amounts{})

	decEqual(t, "50", got["a"])
	decEqual(t, "50", got["b"])
}

func TestCompute_EndToEnd(t *testing.T) {
	in := Input{
		Departments: []core.Department{dept("a", 200000), dept("b", 400000)},
		Categories:  categories,
		Expenses: []core.ExpenseRecord{
			expense("e1", "a", "materials", 100000, core.StatusApproved),
			expense("e2", "b", "materials", 300000, core.StatusApproved),
			expense("e3", "b", "materials", 999999, core.StatusPending),
		},
		IndirectCosts: []core.IndirectCostRecord{
			indirect("c1", 50000, core.PolicyEqual),
			indirect("c2", 80000, core.PolicyProportional),
		},
	}

	r := Compute(in)

	require.Len(t, r.Departments, 2)
	a, b := r.Departments[0], r.Departments[1]
	assert.Equal(t, "a", a.DepartmentID)
	decEqual(t, "100000", a.DirectCost)
	decEqual(t, "45000", a.AllocatedIndirectCost)
	decEqual(t, "145000", a.TotalCost)
	decEqual(t, "55000", a.Remaining)
	ratio, ok := a.Utilization.Ratio()
	require.True(t, ok)
	decEqual(t, "0.725", ratio)

	decEqual(t, "300000", b.DirectCost)
	decEqual(t, "85000", b.AllocatedIndirectCost)
	decEqual(t, "385000", b.TotalCost)
	assert.Equal(t, BandCritical, b.Utilization.Band())

	decEqual(t, "400000", r.Totals.TotalDirect)
	decEqual(t, "130000", r.Totals.TotalIndirect)
	decEqual(t, "530000", r.Totals.TotalSpent)
	decEqual(t, "600000", r.Totals.TotalBudget)
	decEqual(t, "70000", r.Totals.TotalRemaining)
	decEqual(t, "130000", r.Totals.Allocated)
	decEqual(t, "0", r.Totals.Unallocated)
	assert.Empty(t, r.Excluded)

	// Total allocated equals total indirect.
	sum := decimal.Zero
	for _, res := range r.Departments {
		sum = sum.Add(res.AllocatedIndirectCost)
	}
	decEqual(t, "130000", sum)
}

func TestCompute_DegenerateProportional(t *testing.T) {
	in := Input{
		Departments: []core.Department{dept("a", 1000), dept("b", 1000), dept("c", 1000)},
		Categories:  categories,
		Expenses: []core.ExpenseRecord{
			expense("e1", "a", "materials", 5000, core.StatusPending),
		},
		IndirectCosts: []core.IndirectCostRecord{indirect("c1", 60000, core.PolicyProportional)},
	}

	r := Compute(in)

	for _, res := range r.Departments {
		decEqual(t, "0", res.DirectCost)
		decEqual(t, "20000", res.AllocatedIndirectCost)
	}
	require.Len(t, r.Shares, 1)
	assert.True(t, r.Shares[0].FellBackToEqual)
}

func TestCompute_NoDepartments(t *testing.T) {
	r := Compute(Input{
		Categories:    categories,
		IndirectCosts: []core.IndirectCostRecord{indirect("c1", 1000, core.PolicyEqual)},
	})

	assert.Empty(t, r.Departments)
	decEqual(t, "1000", r.Totals.TotalIndirect)
	decEqual(t, "0", r.Totals.Allocated)
	decEqual(t, "1000", r.Totals.Unallocated)
	assert.False(t, r.Totals.Utilization.Applicable())
}

func TestCompute_Idempotent(t *testing.T) {
	in := Input{
		Departments: []core.Department{dept("a", 200000), dept("b", 0), dept("c", 100)},
		Categories:  categories,
		Expenses: []core.ExpenseRecord{
			expense("e1", "a", "materials", 12345, core.StatusApproved),
			expense("e2", "c", "materials", 777, core.StatusApproved),
		},
		IndirectCosts: []core.IndirectCostRecord{
			indirect("c1", 1000, core.PolicyEqual),
			indirect("c2", 333, core.PolicyProportional),
		},
	}

	first, err := json.Marshal(Compute(in))
	require.NoError(t, err)
	second, err := json.Marshal(Compute(in))
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestCompute_Exclusions(t *testing.T) {
	in := Input{
		Departments: []core.Department{dept("a", 1000)},
		Categories:  categories,
		Expenses: []core.ExpenseRecord{
			expense("e1", "ghost", "materials", 10, core.StatusApproved),
			expense("e2", "a", "unknown", 10, core.StatusApproved),
			expense("e3", "ghost", "unknown", 10, core.StatusPending),
		},
	}

	r := Compute(in)

	require.Len(t, r.Excluded, 2)
	assert.Equal(t, Exclusion{RecordID: "e1", Reason: ReasonUnknownDepartment, Value: "ghost"}, r.Excluded[0])
	assert.Equal(t, Exclusion{RecordID: "e2", Reason: ReasonUnknownCategory, Value: "unknown"}, r.Excluded[1])
	// Org-wide direct spend does not depend on department resolution.
	decEqual(t, "10", r.Totals.TotalDirect)
}

func TestShareBreakdown_MatchesAllocation(t *testing.T) {
	departments := []core.Department{dept("a", 1000), dept("b", 1000), dept("c", 1000)}
	direct := Amounts{"a": decimal.NewFromInt(10), "b": decimal.NewFromInt(20), "c": decimal.NewFromInt(70)}
	costs := []core.IndirectCostRecord{
		indirect("c1", 300, core.PolicyEqual),
		indirect("c2", 1000, core.PolicyProportional),
	}

	breakdown := ShareBreakdown(departments, costs, direct)
	allocated := AllocateIndirectCosts(departments, costs, direct)

	summed := Amounts{}
	for _, rs := range breakdown {
		assert.False(t, rs.FellBackToEqual)
		for _, s := range rs.Shares {
			summed[s.DepartmentID] = summed.Get(s.DepartmentID).Add(s.Amount)
		}
	}
	for _, d := range departments {
		assert.True(t, summed[d.ID].Equal(allocated[d.ID]), "department %s", d.ID)
	}
	decEqual(t, "800", allocated["c"]) // 100 + 700
}

func TestComputeOrgTotals(t *testing.T) {
	expenses := []core.ExpenseRecord{
		expense("e1", "a", "materials", 100, core.StatusApproved),
		expense("e2", "a", "materials", 100, core.StatusPending),
		expense("e3", "a", "utilities", 100, core.StatusApproved),
	}
	costs := []core.IndirectCostRecord{indirect("c1", 40, core.PolicyEqual), indirect("c2", 60, core.PolicyProportional)}

	got := ComputeOrgTotals(expenses, costs, categories)

	decEqual(t, "100", got.TotalDirect)
	decEqual(t, "100", got.TotalIndirect)
	decEqual(t, "200", got.TotalSpent)
}
