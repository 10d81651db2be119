package coupon

import (
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Coupon is a reusable discount definition. Fixed-amount coupons carry a
// currency; percentage coupons apply in any invoice currency.
type Coupon struct {
	ID         string          `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Code       string          `db:"code" json:"code"`
	CouponType types.CouponType `db:"coupon_type" json:"coupon_type"`
	// Amount is the fixed discount for fixed_amount coupons
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// Percentage is the rate for percentage coupons, e.g. 10 for 10%
	Percentage decimal.Decimal       `db:"percentage" json:"percentage"`
	Currency   string                `db:"currency" json:"currency,omitempty"`
	Frequency  types.CouponFrequency `db:"frequency" json:"frequency"`
	// FrequencyDuration is the invoice count for recurring coupons
	FrequencyDuration *int `db:"frequency_duration" json:"frequency_duration,omitempty"`
	// Reusable coupons may be applied to the same customer more than once
	Reusable bool `db:"reusable" json:"reusable"`
	// ExpiresAt closes the redemption window; nil means no expiry
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	types.BaseModel
}

func (c *Coupon) Validate() error {
	switch c.CouponType {
	case types.CouponTypeFixedAmount:
		if c.Amount.IsNegative() || c.Amount.IsZero() {
			return ierr.NewError("fixed amount coupon requires positive amount").
				WithHint("Coupon amount must be positive").
				Mark(ierr.ErrValidation)
		}
		if c.Currency == "" {
			return ierr.NewError("fixed amount coupon requires currency").
				WithHint("Currency is required for fixed amount coupons").
				Mark(ierr.ErrValidation)
		}
	case types.CouponTypePercentage:
		if c.Percentage.IsNegative() || c.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("percentage must be between 0 and 100").
				WithHint("Coupon percentage must be between 0 and 100").
				WithReportableDetails(map[string]interface{}{
					"percentage": c.Percentage.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	default:
		return ierr.NewError("invalid coupon type").
			WithHint("Coupon type must be fixed_amount or percentage").
			Mark(ierr.ErrValidation)
	}
	if c.Frequency == types.CouponFrequencyRecurring {
		if c.FrequencyDuration == nil || *c.FrequencyDuration <= 0 {
			return ierr.NewError("recurring coupon requires frequency_duration").
				WithHint("Recurring coupons need a positive frequency duration").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// AppliedCoupon attaches a coupon to a customer. It carries the remaining
// invoice count for recurring coupons; the counter decrements each time the
// coupon produces a discount and the row terminates at zero.
type AppliedCoupon struct {
	ID                          string                    `db:"id" json:"id"`
	CouponID                    string                    `db:"coupon_id" json:"coupon_id"`
	CustomerID                  string                    `db:"customer_id" json:"customer_id"`
	AppliedCouponStatus         types.AppliedCouponStatus `db:"applied_coupon_status" json:"applied_coupon_status"`
	FrequencyDurationRemaining  *int                      `db:"frequency_duration_remaining" json:"frequency_duration_remaining,omitempty"`
	TerminatedAt                *time.Time                `db:"terminated_at" json:"terminated_at,omitempty"`
	types.BaseModel
}
