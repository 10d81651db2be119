package webhook

import (
	"context"
	"time"
)

type Repository interface {
	CreateEndpoint(ctx context.Context, e *Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)
	UpdateEndpoint(ctx context.Context, e *Endpoint) error
	ListEndpoints(ctx context.Context) ([]*Endpoint, error)

	CreateWebhook(ctx context.Context, w *Webhook) error
	GetWebhook(ctx context.Context, id string) (*Webhook, error)
	UpdateWebhook(ctx context.Context, w *Webhook) error
	// ListDueForRetry returns failed-but-retryable rows whose backoff
	// window has elapsed
	ListDueForRetry(ctx context.Context, asOf time.Time, limit int) ([]*Webhook, error)

	CreateAttempt(ctx context.Context, a *DeliveryAttempt) error
	ListAttempts(ctx context.Context, webhookID string) ([]*DeliveryAttempt, error)
}
