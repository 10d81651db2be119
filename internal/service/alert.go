package service

import (
	"context"

	"github.com/billix/billix/internal/domain/alert"
	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/events"
	"github.com/billix/billix/internal/domain/metric"
	"github.com/billix/billix/internal/domain/subscription"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type AlertService interface {
	CreateAlert(ctx context.Context, a *alert.UsageAlert) error
	GetAlert(ctx context.Context, id string) (*alert.UsageAlert, error)
	DeactivateAlert(ctx context.Context, id string) error
	ListTriggers(ctx context.Context, alertID string) ([]*alert.Trigger, error)

	// EvaluateSubscription re-checks every active alert on the
	// subscription against current-period usage, firing once per newly
	// crossed threshold multiple
	EvaluateSubscription(ctx context.Context, subscriptionID string) error
}

type alertService struct {
	ServiceParams
	usageService UsageService
}

func NewAlertService(params ServiceParams) AlertService {
	return &alertService{
		ServiceParams: params,
		usageService:  NewUsageService(params),
	}
}

func (s *alertService) CreateAlert(ctx context.Context, a *alert.UsageAlert) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, err := s.SubRepo.Get(ctx, a.SubscriptionID); err != nil {
		return err
	}
	if _, err := s.MetricRepo.Get(ctx, a.MetricID); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_ALERT)
	}
	if a.AlertStatus == "" {
		a.AlertStatus = types.UsageAlertStatusActive
	}
	if a.TenantID == "" {
		a.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	return s.AlertRepo.Create(ctx, a)
}

func (s *alertService) GetAlert(ctx context.Context, id string) (*alert.UsageAlert, error) {
	return s.AlertRepo.Get(ctx, id)
}

func (s *alertService) DeactivateAlert(ctx context.Context, id string) error {
	a, err := s.AlertRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	a.AlertStatus = types.UsageAlertStatusDisabled
	return s.AlertRepo.Update(ctx, a)
}

func (s *alertService) ListTriggers(ctx context.Context, alertID string) ([]*alert.Trigger, error) {
	return s.AlertRepo.ListTriggers(ctx, alertID)
}

func (s *alertService) EvaluateSubscription(ctx context.Context, subscriptionID string) error {
	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return nil
	}

	alerts, err := s.AlertRepo.ListActiveBySubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	for _, a := range alerts {
		if err := s.evaluate(ctx, sub, a); err != nil {
			s.Logger.Errorw("alert evaluation failed",
				"error", err,
				"alert_id", a.ID,
				"subscription_id", subscriptionID,
			)
		}
	}
	return nil
}

func (s *alertService) evaluate(ctx context.Context, sub *subscription.Subscription, a *alert.UsageAlert) error {
	m, err := s.MetricRepo.Get(ctx, a.MetricID)
	if err != nil {
		return err
	}
	usage, err := s.currentPeriodUsage(ctx, sub, m)
	if err != nil {
		return err
	}

	// Counters reset when the billing period the alert last saw rolls over
	if a.PeriodStart == nil || !a.PeriodStart.Equal(sub.CurrentPeriodStart) {
		ps := sub.CurrentPeriodStart
		a.PeriodStart = &ps
		a.TriggeredCount = 0
	}

	target := a.TargetCount(usage.Value)
	if target <= a.TriggeredCount {
		return nil
	}

	now := timeNow()
	for i := a.TriggeredCount; i < target; i++ {
		trigger := &alert.Trigger{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_ALERT_TRIGGER),
			AlertID:     a.ID,
			UsageValue:  usage.Value,
			Threshold:   a.Threshold,
			TriggeredAt: now,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}
		if err := s.AlertRepo.CreateTrigger(ctx, trigger); err != nil {
			return err
		}
		publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventUsageAlertTriggered, "usage_alert", a.ID)
	}

	a.TriggeredCount = target
	a.LastTriggeredAt = &now
	if err := s.AlertRepo.Update(ctx, a); err != nil {
		return err
	}

	s.Logger.Infow("usage alert triggered",
		"alert_id", a.ID,
		"subscription_id", sub.ID,
		"usage", usage.Value.StringFixed(4),
		"threshold", a.Threshold.StringFixed(4),
		"triggered_count", a.TriggeredCount,
	)
	return nil
}

// currentPeriodUsage aggregates the metric over the subscription's current
// billing period with no charge filters
func (s *alertService) currentPeriodUsage(ctx context.Context, sub *subscription.Subscription, m *metric.Metric) (*events.AggregationResult, error) {
	if sub.CurrentPeriodStart.IsZero() {
		return nil, ierr.NewError("subscription has no billing period").
			WithHintf("Subscription %s has not started billing yet", sub.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	return s.usageService.GetChargeUsage(ctx, sub, &charge.Charge{}, m, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
}
