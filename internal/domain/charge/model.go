package charge

import (
	"fmt"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Charge attaches a metric to a plan under one of the six charge models.
// Properties carries the model parameters; Filters optionally narrow the
// charge to a subset of the metric's events.
type Charge struct {
	ID       string `db:"id" json:"id"`
	PlanID   string `db:"plan_id" json:"plan_id"`
	MetricID string `db:"metric_id" json:"metric_id"`

	Model types.ChargeModel `db:"model" json:"charge_model"`

	Properties Properties `db:"properties" json:"properties"`

	// Filters are evaluated in insertion order; the first filter whose
	// values all match an event wins
	Filters []Filter `db:"filters" json:"filters,omitempty"`

	InvoiceDisplayName string `db:"invoice_display_name" json:"invoice_display_name,omitempty"`

	types.BaseModel
}

// Properties is the union of the model parameters across charge models.
// Only the fields relevant to the charge's model are read.
type Properties struct {
	// standard
	UnitPrice decimal.Decimal `json:"unit_price,omitempty"`

	// package
	PackageSize int64           `json:"package_size,omitempty"`
	FreeUnits   decimal.Decimal `json:"free_units,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`

	// graduated, volume, graduated_percentage. Tiers is the canonical
	// form; GraduatedRanges is accepted on input and normalized away.
	Tiers           []Tier            `json:"tiers,omitempty"`
	GraduatedRanges []GraduatedRange  `json:"graduated_ranges,omitempty"`

	// percentage
	Rate               decimal.Decimal  `json:"rate,omitempty"`
	FixedAmount        decimal.Decimal  `json:"fixed_amount,omitempty"`
	FreeUnitsPerEvents int64            `json:"free_units_per_events,omitempty"`
	PerTransactionMin  *decimal.Decimal `json:"per_transaction_min,omitempty"`
	PerTransactionMax  *decimal.Decimal `json:"per_transaction_max,omitempty"`
}

// Tier is the canonical tier shape. A nil UpTo marks the open-ended last
// tier. UnitPrice prices units for graduated/volume; Rate is the percentage
// for graduated_percentage.
type Tier struct {
	UpTo       *decimal.Decimal `json:"up_to,omitempty"`
	UnitPrice  decimal.Decimal  `json:"unit_price,omitempty"`
	FlatAmount decimal.Decimal  `json:"flat_amount,omitempty"`
	Rate       decimal.Decimal  `json:"rate,omitempty"`
}

// GraduatedRange is the alternate input shape with inclusive from/to
// bounds. A nil ToValue marks the open-ended last range.
type GraduatedRange struct {
	FromValue  decimal.Decimal  `json:"from_value"`
	ToValue    *decimal.Decimal `json:"to_value,omitempty"`
	PerUnit    decimal.Decimal  `json:"per_unit_amount,omitempty"`
	FlatAmount decimal.Decimal  `json:"flat_amount,omitempty"`
	Rate       decimal.Decimal  `json:"rate,omitempty"`
}

// Filter selects a subset of the metric's events. Every value pair must
// match the event's properties for the filter to apply.
type Filter struct {
	ID     string        `json:"id"`
	Values []FilterValue `json:"values"`

	InvoiceDisplayName string `json:"invoice_display_name,omitempty"`

	// Properties overrides the charge-level model parameters for events
	// matching this filter, when set
	Properties *Properties `json:"properties,omitempty"`
}

// FilterValue pins one property key to one expected value
type FilterValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Matches reports whether every value pair of the filter equals the
// event's properties
func (f Filter) Matches(properties map[string]interface{}) bool {
	if len(f.Values) == 0 {
		return false
	}
	for _, fv := range f.Values {
		raw, ok := properties[fv.Key]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", raw) != fv.Value {
			return false
		}
	}
	return true
}

// NormalizedTiers returns the canonical up_to tier list, converting
// graduated_ranges when that shape was supplied. from/to ranges are
// inclusive so to_value maps directly to up_to.
func (p Properties) NormalizedTiers() []Tier {
	if len(p.Tiers) > 0 {
		return p.Tiers
	}
	tiers := make([]Tier, 0, len(p.GraduatedRanges))
	for _, r := range p.GraduatedRanges {
		tier := Tier{
			UnitPrice:  r.PerUnit,
			FlatAmount: r.FlatAmount,
			Rate:       r.Rate,
		}
		if r.ToValue != nil {
			upTo := *r.ToValue
			tier.UpTo = &upTo
		}
		tiers = append(tiers, tier)
	}
	return tiers
}

func (c *Charge) Validate() error {
	if c.PlanID == "" || c.MetricID == "" {
		return ierr.NewError("plan_id and metric_id are required").
			WithHint("Charge must reference a plan and a metric").
			Mark(ierr.ErrValidation)
	}
	if !c.Model.Validate() {
		return ierr.NewError("invalid charge model").
			WithHintf("Unsupported charge model %s", c.Model).
			Mark(ierr.ErrValidation)
	}

	switch c.Model {
	case types.ChargeModelPackage:
		if c.Properties.PackageSize <= 0 {
			return ierr.NewError("package_size must be positive").
				WithHint("Package size must be greater than zero").
				Mark(ierr.ErrValidation)
		}
	case types.ChargeModelGraduated, types.ChargeModelVolume, types.ChargeModelGraduatedPercentage:
		if len(c.Properties.Tiers) > 0 && len(c.Properties.GraduatedRanges) > 0 {
			return ierr.NewError("ambiguous tier definition").
				WithHint("Provide either tiers or graduated_ranges, not both").
				Mark(ierr.ErrValidation)
		}
	}

	for _, f := range c.Filters {
		if len(f.Values) == 0 {
			return ierr.NewError("charge filter has no values").
				WithHint("Each charge filter needs at least one key/value pair").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
