package dunning

import (
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Campaign configures automated collection for overdue invoices. Thresholds
// are per currency; a customer's outstanding balance in a currency must
// reach the threshold before a payment request is created.
type Campaign struct {
	ID                  string       `db:"id" json:"id"`
	Name                string       `db:"name" json:"name"`
	Code                string       `db:"code" json:"code"`
	MaxAttempts         int          `db:"max_attempts" json:"max_attempts"`
	DaysBetweenAttempts int          `db:"days_between_attempts" json:"days_between_attempts"`
	AppliedToOrg        bool         `db:"applied_to_org" json:"applied_to_org"`
	Thresholds          []*Threshold `db:"-" json:"thresholds"`
	types.BaseModel
}

func (c *Campaign) Validate() error {
	if c.MaxAttempts <= 0 {
		return ierr.NewError("max_attempts must be positive").
			WithHint("Dunning campaigns need at least one attempt").
			Mark(ierr.ErrValidation)
	}
	if c.DaysBetweenAttempts <= 0 {
		return ierr.NewError("days_between_attempts must be positive").
			WithHint("Days between attempts must be positive").
			Mark(ierr.ErrValidation)
	}
	seen := map[string]bool{}
	for _, t := range c.Thresholds {
		if seen[t.Currency] {
			return ierr.NewError("duplicate threshold currency").
				WithHintf("Currency %s appears more than once", t.Currency).
				Mark(ierr.ErrValidation)
		}
		seen[t.Currency] = true
	}
	return nil
}

// ThresholdFor returns the campaign threshold for a currency, if any
func (c *Campaign) ThresholdFor(currency string) (*Threshold, bool) {
	for _, t := range c.Thresholds {
		if t.Currency == currency {
			return t, true
		}
	}
	return nil, false
}

// Threshold is the minimum outstanding amount per currency that triggers
// a payment request
type Threshold struct {
	ID         string          `db:"id" json:"id"`
	CampaignID string          `db:"campaign_id" json:"campaign_id"`
	Currency   string          `db:"currency" json:"currency"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	types.BaseModel
}
