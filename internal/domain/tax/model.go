package tax

import (
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Tax is a named rate, e.g. VAT 20%
type Tax struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Code        string          `db:"code" json:"code"`
	Rate        decimal.Decimal `db:"rate" json:"rate"`
	Description string          `db:"description" json:"description,omitempty"`
	types.BaseModel
}

func (t *Tax) Validate() error {
	if t.Code == "" {
		return ierr.NewError("code is required").
			WithHint("Tax code is required").
			Mark(ierr.ErrValidation)
	}
	if t.Rate.IsNegative() || t.Rate.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("rate must be between 0 and 100").
			WithHint("Tax rate must be between 0 and 100").
			WithReportableDetails(map[string]interface{}{
				"rate": t.Rate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AppliedTax binds a tax to a taxable object. Resolution precedence at
// rating time is fee, then customer, then tenant.
type AppliedTax struct {
	ID          string            `db:"id" json:"id"`
	TaxID       string            `db:"tax_id" json:"tax_id"`
	TaxableType types.TaxableType `db:"taxable_type" json:"taxable_type"`
	TaxableID   string            `db:"taxable_id" json:"taxable_id"`
	types.BaseModel
}
