package alert

import (
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// UsageAlert fires a webhook when a subscription's usage for a metric
// crosses a threshold. Recurring alerts fire once per threshold multiple
// within the billing period.
type UsageAlert struct {
	ID             string                 `db:"id" json:"id"`
	SubscriptionID string                 `db:"subscription_id" json:"subscription_id"`
	MetricID       string                 `db:"metric_id" json:"metric_id"`
	Name           string                 `db:"name" json:"name"`
	Threshold      decimal.Decimal        `db:"threshold" json:"threshold"`
	Recurring      bool                   `db:"recurring" json:"recurring"`
	AlertStatus    types.UsageAlertStatus `db:"alert_status" json:"alert_status"`
	// TriggeredCount is how many times the alert fired in the current
	// billing period; it resets at period rollover
	TriggeredCount  int        `db:"triggered_count" json:"triggered_count"`
	LastTriggeredAt *time.Time `db:"last_triggered_at" json:"last_triggered_at,omitempty"`
	PeriodStart     *time.Time `db:"period_start" json:"period_start,omitempty"`
	types.BaseModel
}

func (a *UsageAlert) Validate() error {
	if a.Threshold.IsNegative() || a.Threshold.IsZero() {
		return ierr.NewError("threshold must be positive").
			WithHint("Alert threshold must be positive").
			WithReportableDetails(map[string]interface{}{
				"threshold": a.Threshold.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TargetCount is how many times the alert should have fired for the given
// usage value. One-shot alerts cap at one.
func (a *UsageAlert) TargetCount(usage decimal.Decimal) int {
	if usage.LessThan(a.Threshold) {
		return 0
	}
	if !a.Recurring {
		return 1
	}
	return int(usage.Div(a.Threshold).Floor().IntPart())
}

// Trigger records one firing of an alert
type Trigger struct {
	ID          string          `db:"id" json:"id"`
	AlertID     string          `db:"alert_id" json:"alert_id"`
	UsageValue  decimal.Decimal `db:"usage_value" json:"usage_value"`
	Threshold   decimal.Decimal `db:"threshold" json:"threshold"`
	TriggeredAt time.Time       `db:"triggered_at" json:"triggered_at"`
	types.BaseModel
}
