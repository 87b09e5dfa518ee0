// Package rbac maps user roles to the views, report exports and write
// capabilities they are granted. The mapping is static policy data.
package rbac

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleAnalyst Role = "analyst"
	RoleManager Role = "manager"
)

// View is a navigable area of the dashboard.
type View string

const (
	ViewDashboard      View = "dashboard"
	ViewExpenses       View = "expenses"
	ViewCostAllocation View = "cost-allocation"
	ViewReports        View = "reports"
	ViewSettings       View = "settings"
)

// Export names a downloadable report.
type Export string

const (
	ExportExpenses       Export = "expenses"
	ExportDepartments    Export = "departments"
	ExportCategories     Export = "categories"
	ExportBudgetVsActual Export = "budget-vs-actual"
	ExportDirectIndirect Export = "direct-indirect"
	ExportApprovalStatus Export = "approval-status"
	ExportMonthlyTrend   Export = "monthly-trend"
	ExportExecutive      Export = "executive"
)

// Capability is a write permission beyond recording one's own expenses.
type Capability string

const (
	CapRecordExpenses      Capability = "record-expenses"
	CapManageIndirectCosts Capability = "manage-indirect-costs"
	CapApproveExpenses     Capability = "approve-expenses"
)

var ErrUnknownRole = errors.New("unknown role")

// NavItem is one entry of the role's navigation.
type NavItem struct {
	View  View   `json:"view"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

var navItems = map[View]NavItem{
	ViewDashboard:      {View: ViewDashboard, Title: "Dashboard", Path: "/dashboard"},
	ViewExpenses:       {View: ViewExpenses, Title: "Expenses", Path: "/expenses"},
	ViewCostAllocation: {View: ViewCostAllocation, Title: "Cost allocation", Path: "/cost-allocation"},
	ViewReports:        {View: ViewReports, Title: "Reports", Path: "/reports"},
	ViewSettings:       {View: ViewSettings, Title: "Settings", Path: "/settings"},
}

var views = map[Role][]View{
	RoleUser:    {ViewDashboard, ViewExpenses, ViewReports},
	RoleAnalyst: {ViewDashboard, ViewExpenses, ViewCostAllocation, ViewReports},
	RoleManager: {ViewDashboard, ViewExpenses, ViewCostAllocation, ViewReports, ViewSettings},
}

var exports = map[Role][]Export{
	RoleUser: {ExportExpenses, ExportDepartments},
	RoleAnalyst: {
		ExportExpenses, ExportDepartments, ExportCategories, ExportBudgetVsActual,
		ExportDirectIndirect, ExportApprovalStatus, ExportMonthlyTrend,
	},
	RoleManager: AllExports(),
}

var capabilities = map[Role][]Capability{
	RoleUser:    {CapRecordExpenses},
	RoleAnalyst: {CapRecordExpenses, CapManageIndirectCosts},
	RoleManager: {CapRecordExpenses, CapManageIndirectCosts, CapApproveExpenses},
}

// AllExports lists every report kind in presentation order.
func AllExports() []Export {
	return []Export{
		ExportExecutive, ExportBudgetVsActual, ExportDirectIndirect, ExportApprovalStatus,
		ExportMonthlyTrend, ExportDepartments, ExportCategories, ExportExpenses,
	}
}

// ParseRole normalizes a role name. Unknown names are an error, never a
// silent downgrade.
func ParseRole(v string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(v)))
	if _, ok := views[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, v)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := views[r]
	return ok
}

// Views returns the views granted to the role, in navigation order.
func (r Role) Views() []View {
	return slices.Clone(views[r])
}

// Navigation returns the sidebar entries for the role.
func (r Role) Navigation() []NavItem {
	vs := views[r]
	out := make([]NavItem, 0, len(vs))
	for _, v := range vs {
		out = append(out, navItems[v])
	}
	return out
}

// Exports returns the report exports granted to the role.
func (r Role) Exports() []Export {
	return slices.Clone(exports[r])
}

func (r Role) CanView(v View) bool {
	return slices.Contains(views[r], v)
}

func (r Role) CanExport(e Export) bool {
	return slices.Contains(exports[r], e)
}

func (r Role) Can(c Capability) bool {
	return slices.Contains(capabilities[r], c)
}
