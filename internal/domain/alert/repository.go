package alert

import "context"

type Repository interface {
	Create(ctx context.Context, a *UsageAlert) error
	Get(ctx context.Context, id string) (*UsageAlert, error)
	Update(ctx context.Context, a *UsageAlert) error
	// ListActiveBySubscription returns active alerts watching any metric
	// on a subscription
	ListActiveBySubscription(ctx context.Context, subscriptionID string) ([]*UsageAlert, error)
	ListActiveByMetric(ctx context.Context, metricID string) ([]*UsageAlert, error)

	CreateTrigger(ctx context.Context, t *Trigger) error
	ListTriggers(ctx context.Context, alertID string) ([]*Trigger, error)
}
