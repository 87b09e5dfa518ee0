// Package reference holds the departments and categories every record points to.
package reference

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"budgetdash/internal/core"
)

// Catalog is the read-only reference data: departments with their annual
// budgets and the direct/indirect expense categories.
type Catalog struct {
	departments []core.Department
	categories  []core.Category
	deptIdx     map[string]int
	catIdx      map[string]int
}

type fileDepartment struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Budget string `yaml:"budget"`
}

type fileCategory struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type file struct {
	Departments []fileDepartment `yaml:"departments"`
	Categories  []fileCategory   `yaml:"categories"`
}

var ErrDuplicateID = errors.New("duplicate id")

// New validates the given reference data and builds a catalog.
func New(departments []core.Department, categories []core.Category) (*Catalog, error) {
	c := &Catalog{
		departments: append([]core.Department(nil), departments...),
		categories:  append([]core.Category(nil), categories...),
		deptIdx:     make(map[string]int, len(departments)),
		catIdx:      make(map[string]int, len(categories)),
	}
	for i, d := range c.departments {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.deptIdx[d.ID]; dup {
			return nil, fmt.Errorf("department %q: %w", d.ID, ErrDuplicateID)
		}
		c.deptIdx[d.ID] = i
	}
	for i, cat := range c.categories {
		if err := cat.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.catIdx[cat.ID]; dup {
			return nil, fmt.Errorf("category %q: %w", cat.ID, ErrDuplicateID)
		}
		c.catIdx[cat.ID] = i
	}
	return c, nil
}

// Parse decodes a YAML reference file. Budgets are decimal strings in
// currency units ("5000000" or "5000000.00").
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reference data: %w", err)
	}
	departments := make([]core.Department, 0, len(f.Departments))
	for _, d := range f.Departments {
		cents, err := core.ParseDecimalToCents(d.Budget)
		if err != nil {
			return nil, fmt.Errorf("department %q budget %q: %w", d.ID, d.Budget, err)
		}
		departments = append(departments, core.Department{ID: d.ID, Name: d.Name, Budget: core.Money{Cents: cents}})
	}
	categories := make([]core.Category, 0, len(f.Categories))
	for _, c := range f.Categories {
		t, err := core.ParseCostType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.ID, err)
		}
		categories = append(categories, core.Category{ID: c.ID, Name: c.Name, Type: t})
	}
	return New(departments, categories)
}

// Load reads a YAML reference file; an empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return Parse(data)
}

// Default is the built-in reference data: five departments and six categories.
func Default() *Catalog {
	c, err := New(
		[]core.Department{
			{ID: "purchase", Name: "Purchasing", Budget: core.NewMoney(5000000)},
			{ID: "engineering", Name: "Engineering", Budget: core.NewMoney(8000000)},
			{ID: "operations", Name: "Operations", Budget: core.NewMoney(6000000)},
			{ID: "quality", Name: "Quality Control", Budget: core.NewMoney(3000000)},
			{ID: "painting", Name: "Painting", Budget: core.NewMoney(2000000)},
		},
		[]core.Category{
			{ID: "materials", Name: "Materials & Equipment", Type: core.CostDirect},
			{ID: "outsource", Name: "Outsourcing", Type: core.CostDirect},
			{ID: "utilities", Name: "Utilities", Type: core.CostIndirect},
			{ID: "salary", Name: "Salaries", Type: core.CostIndirect},
			{ID: "maintenance", Name: "Maintenance", Type: core.CostIndirect},
			{ID: "other", Name: "Other", Type: core.CostIndirect},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Departments returns a copy of the departments in declaration order.
func (c *Catalog) Departments() []core.Department {
	return append([]core.Department(nil), c.departments...)
}

// Categories returns a copy of the categories in declaration order.
func (c *Catalog) Categories() []core.Category {
	return append([]core.Category(nil), c.categories...)
}

// CategoriesOf returns the categories of one cost type.
func (c *Catalog) CategoriesOf(t core.CostType) []core.Category {
	var out []core.Category
	for _, cat := range c.categories {
		if cat.Type == t {
			out = append(out, cat)
		}
	}
	return out
}

func (c *Catalog) Department(id string) (core.Department, bool) {
	i, ok := c.deptIdx[id]
	if !ok {
		return core.Department{}, false
	}
	return c.departments[i], true
}

func (c *Catalog) Category(id string) (core.Category, bool) {
	i, ok := c.catIdx[id]
	if !ok {
		return core.Category{}, false
	}
	return c.categories[i], true
}

// DepartmentName falls back to the id for unknown departments.
func (c *Catalog) DepartmentName(id string) string {
	if d, ok := c.Department(id); ok {
		return d.Name
	}
	return id
}

// CategoryName falls back to the id for unknown categories.
func (c *Catalog) CategoryName(id string) string {
	if cat, ok := c.Category(id); ok {
		return cat.Name
	}
	return id
}

// CheckExpense verifies that an expense points to a known department and a
// known category. Expenses may use categories of either type.
func (c *Catalog) CheckExpense(e core.ExpenseRecord) error {
	if _, ok := c.Department(e.DepartmentID); !ok {
		return fmt.Errorf("%w: %q", core.ErrUnknownDepartment, e.DepartmentID)
	}
	if _, ok := c.Category(e.CategoryID); !ok {
		return fmt.Errorf("%w: %q", core.ErrUnknownCategory, e.CategoryID)
	}
	return nil
}

// CheckIndirectCost verifies that an indirect cost points to a known
// indirect category.
func (c *Catalog) CheckIndirectCost(ic core.IndirectCostRecord) error {
	cat, ok := c.Category(ic.CategoryID)
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrUnknownCategory, ic.CategoryID)
	}
	if cat.Type != core.CostIndirect {
		return fmt.Errorf("%w: %q is %s", core.ErrCategoryType, cat.ID, cat.Type)
	}
	return nil
}
