package allocation

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Band is the colour band the dashboard uses for a utilization figure.
type Band string

const (
	BandHealthy       Band = "healthy"
	BandWarning       Band = "warning"
	BandCritical      Band = "critical"
	BandNotApplicable Band = "n/a"
)

var (
	hundred         = decimal.NewFromInt(100)
	warningPercent  = decimal.NewFromInt(75)
	criticalPercent = decimal.NewFromInt(90)
	percentPlaces   = int32(1)
)

// Utilization is spend over budget. It is not applicable when the budget is
// zero, and it is not clamped: overspent departments report above 1.
type Utilization struct {
	ratio      decimal.Decimal
	applicable bool
}

// NewUtilization builds spent/budget, or a not-applicable value for a zero budget.
func NewUtilization(spent, budget decimal.Decimal) Utilization {
	if budget.IsZero() {
		return Utilization{}
	}
	return Utilization{ratio: spent.Div(budget), applicable: true}
}

func (u Utilization) Applicable() bool { return u.applicable }

// Ratio returns the raw ratio; ok is false when not applicable.
func (u Utilization) Ratio() (decimal.Decimal, bool) {
	return u.ratio, u.applicable
}

// Percent returns the ratio times 100; zero when not applicable.
func (u Utilization) Percent() decimal.Decimal {
	if !u.applicable {
		return decimal.Zero
	}
	return u.ratio.Mul(hundred)
}

// Exceeds reports whether the ratio is strictly above threshold.
// A not-applicable utilization exceeds nothing.
func (u Utilization) Exceeds(threshold decimal.Decimal) bool {
	return u.applicable && u.ratio.GreaterThan(threshold)
}

// OverBudget is true when spend is above budget.
func (u Utilization) OverBudget() bool {
	return u.Exceeds(decimal.NewFromInt(1))
}

// Band maps the percentage onto the dashboard's colour thresholds:
// above 90 critical, above 75 warning.
func (u Utilization) Band() Band {
	if !u.applicable {
		return BandNotApplicable
	}
	p := u.Percent()
	switch {
	case p.GreaterThan(criticalPercent):
		return BandCritical
	case p.GreaterThan(warningPercent):
		return BandWarning
	default:
		return BandHealthy
	}
}

// String renders the percentage with one decimal, or "n/a".
func (u Utilization) String() string {
	if !u.applicable {
		return string(BandNotApplicable)
	}
	return u.Percent().StringFixed(percentPlaces) + "%"
}

type utilizationJSON struct {
	Ratio   *decimal.Decimal `json:"ratio"`
	Percent *decimal.Decimal `json:"percent"`
	Band    Band             `json:"band"`
}

// MarshalJSON encodes ratio and percent as null when not applicable.
func (u Utilization) MarshalJSON() ([]byte, error) {
	out := utilizationJSON{Band: u.Band()}
	if u.applicable {
		r, p := u.ratio, u.Percent()
		out.Ratio, out.Percent = &r, &p
	}
	return json.Marshal(out)
}
