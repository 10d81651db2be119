package subscription

import (
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

// Subscription binds a customer to a plan over consecutive billing periods
type Subscription struct {
	ID string `db:"id" json:"id"`

	// ExternalID is the caller supplied identifier, unique per tenant
	ExternalID string `db:"external_id" json:"external_id"`

	CustomerID string `db:"customer_id" json:"customer_id"`
	PlanID     string `db:"plan_id" json:"plan_id"`

	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"status"`

	// BillingTime anchors billing periods either to calendar boundaries
	// or to the subscription date
	BillingTime types.BillingTime `db:"billing_time" json:"billing_time"`

	// SubscriptionAt is when the subscription is scheduled to start; a
	// pending subscription activates at this instant
	SubscriptionAt time.Time `db:"subscription_at" json:"subscription_at"`

	// StartedAt is when the subscription actually became active
	StartedAt *time.Time `db:"started_at" json:"started_at,omitempty"`

	// TrialPeriodDays overrides the plan's trial length when set
	TrialPeriodDays int `db:"trial_period_days" json:"trial_period_days"`

	// PayInAdvance bills the flat fee at period start instead of period end
	PayInAdvance bool `db:"pay_in_advance" json:"pay_in_advance"`

	// CurrentPeriodStart and CurrentPeriodEnd bound the period that has
	// not been invoiced yet
	CurrentPeriodStart time.Time `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `db:"current_period_end" json:"current_period_end"`

	PreviousPlanID string `db:"previous_plan_id" json:"previous_plan_id,omitempty"`

	OnTerminationAction types.OnTerminationAction `db:"on_termination_action" json:"on_termination_action"`

	PausedAt  *time.Time `db:"paused_at" json:"paused_at,omitempty"`
	ResumedAt *time.Time `db:"resumed_at" json:"resumed_at,omitempty"`

	CanceledAt   *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	TerminatedAt *time.Time `db:"terminated_at" json:"terminated_at,omitempty"`

	types.BaseModel
}

// IsPaused reports whether the subscription is currently paused
func (s *Subscription) IsPaused() bool {
	return s.PausedAt != nil && (s.ResumedAt == nil || s.ResumedAt.Before(*s.PausedAt))
}

// InTrial reports whether t falls inside the trial window
func (s *Subscription) InTrial(t time.Time) bool {
	if s.TrialPeriodDays <= 0 || s.StartedAt == nil {
		return false
	}
	trialEnd := s.StartedAt.AddDate(0, 0, s.TrialPeriodDays)
	return t.Before(trialEnd)
}

func (s *Subscription) Validate() error {
	if s.ExternalID == "" {
		return ierr.NewError("external_id is required").
			WithHint("External ID is required").
			Mark(ierr.ErrValidation)
	}
	if s.CustomerID == "" || s.PlanID == "" {
		return ierr.NewError("customer_id and plan_id are required").
			WithHint("Subscription must reference a customer and a plan").
			Mark(ierr.ErrValidation)
	}
	switch s.BillingTime {
	case types.BillingTimeCalendar, types.BillingTimeAnniversary:
	default:
		return ierr.NewError("invalid billing time").
			WithHintf("Billing time must be calendar or anniversary, got %s", s.BillingTime).
			Mark(ierr.ErrValidation)
	}
	return nil
}
