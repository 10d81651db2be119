package plan

import (
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Plan bundles a flat recurring amount with usage charges
type Plan struct {
	ID string `db:"id" json:"id"`

	// Code is the tenant-unique identifier for the plan
	Code string `db:"code" json:"code"`

	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`

	// Interval is the billing period of the plan
	Interval types.BillingPeriod `db:"interval" json:"interval"`

	// Amount is the flat recurring fee in currency units
	Amount   decimal.Decimal `db:"amount" json:"amount"`
	Currency string          `db:"currency" json:"currency"`

	// TrialPeriodDays delays the first billing period
	TrialPeriodDays int `db:"trial_period_days" json:"trial_period_days"`

	// Commitment is the minimum amount per period; a corrective fee tops
	// up the invoice when usage stays below it. Zero disables it.
	Commitment decimal.Decimal `db:"commitment" json:"commitment"`

	types.BaseModel
}

func (p *Plan) Validate() error {
	if p.Code == "" {
		return ierr.NewError("code is required").
			WithHint("Plan code is required").
			Mark(ierr.ErrValidation)
	}
	if !p.Interval.Validate() {
		return ierr.NewError("invalid interval").
			WithHintf("Interval must be weekly, monthly, quarterly or yearly, got %s", p.Interval).
			Mark(ierr.ErrValidation)
	}
	if p.Amount.IsNegative() {
		return ierr.NewError("amount cannot be negative").
			WithHint("Plan amount cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
