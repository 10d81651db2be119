package webhook

import (
	"context"
	"time"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/logger"
	pubsubRouter "github.com/billix/billix/internal/pubsub/router"
	"github.com/billix/billix/internal/webhook/handler"
	"github.com/billix/billix/internal/webhook/publisher"
)

// WebhookService ties the outbox publisher and the delivery handler to the
// message router lifecycle
type WebhookService struct {
	config    *config.Configuration
	publisher publisher.WebhookPublisher
	handler   handler.Handler
	logger    *logger.Logger
}

func NewWebhookService(
	cfg *config.Configuration,
	publisher publisher.WebhookPublisher,
	h handler.Handler,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		config:    cfg,
		publisher: publisher,
		handler:   h,
		logger:    l,
	}
}

// Register attaches the delivery handler to the router. The router is run
// by the application lifecycle.
func (s *WebhookService) Register(router *pubsubRouter.Router) {
	if !s.config.Webhook.Enabled {
		s.logger.Info("webhook service disabled")
		return
	}
	s.handler.RegisterHandler(router)
}

// RetryDue redelivers failed webhooks whose backoff has elapsed. Driven by
// the scheduler's webhook_retry task.
func (s *WebhookService) RetryDue(ctx context.Context, now time.Time, limit int) error {
	if !s.config.Webhook.Enabled {
		return nil
	}
	return s.handler.ProcessDueRetries(ctx, now, limit)
}

func (s *WebhookService) Stop() error {
	if err := s.publisher.Close(); err != nil {
		s.logger.Errorw("failed to close webhook publisher", "error", err)
		return err
	}
	return nil
}
