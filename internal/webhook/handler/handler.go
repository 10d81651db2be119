package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/domain/webhook"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/httpclient"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/pubsub"
	pubsubRouter "github.com/billix/billix/internal/pubsub/router"
	"github.com/billix/billix/internal/sentry"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/webhook/payload"
	"github.com/cenkalti/backoff/v4"
)

// Handler consumes the webhook topic, fans events out to endpoints and
// drives the delivery retry schedule
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)

	// ProcessDueRetries redelivers failed webhooks whose backoff window
	// has elapsed
	ProcessDueRetries(ctx context.Context, now time.Time, limit int) error
}

type handler struct {
	pubSub      pubsub.PubSub
	config      *config.WebhookConfig
	factory     payload.PayloadBuilderFactory
	client      httpclient.Client
	logger      *logger.Logger
	sentry      *sentry.Service
	webhookRepo webhook.Repository
	tenantRepo  tenant.Repository
}

func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	factory payload.PayloadBuilderFactory,
	client httpclient.Client,
	logger *logger.Logger,
	sentry *sentry.Service,
	webhookRepo webhook.Repository,
	tenantRepo tenant.Repository,
) (Handler, error) {
	return &handler{
		pubSub:      pubSub,
		config:      &cfg.Webhook,
		factory:     factory,
		client:      client,
		logger:      logger,
		sentry:      sentry,
		webhookRepo: webhookRepo,
		tenantRepo:  tenantRepo,
	}, nil
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage fans one outbox event out to every accepting endpoint
func (h *handler) processMessage(msg *message.Message) error {
	ctx := msg.Context()

	var event types.WebhookEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal webhook event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		// Malformed messages are not retryable
		return nil
	}

	ctx = context.WithValue(ctx, types.CtxTenantID, event.TenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, event.UserID)

	builder, err := h.factory.GetBuilder(event.EventName)
	if err != nil {
		h.logger.Warnw("no payload builder for event",
			"event_name", event.EventName,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	body, err := builder.BuildPayload(ctx, &event)
	if err != nil {
		if ierr.IsNotFound(err) {
			h.logger.Warnw("webhook object no longer exists",
				"event_name", event.EventName,
				"object_id", event.ObjectID,
			)
			return nil
		}
		return err
	}

	endpoints, err := h.webhookRepo.ListEndpoints(ctx)
	if err != nil {
		return err
	}

	for _, endpoint := range endpoints {
		if !endpoint.Accepts(event.EventName) {
			continue
		}

		row := &webhook.Webhook{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
			EndpointID:    endpoint.ID,
			EventName:     event.EventName,
			ObjectType:    event.ObjectType,
			ObjectID:      event.ObjectID,
			Payload:       body,
			WebhookStatus: types.WebhookStatusPending,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		}
		if err := h.webhookRepo.CreateWebhook(ctx, row); err != nil {
			return err
		}

		if err := h.deliver(ctx, row, endpoint); err != nil {
			h.logger.Errorw("webhook delivery failed",
				"error", err,
				"webhook_id", row.ID,
				"endpoint_id", endpoint.ID,
			)
		}
	}
	return nil
}

func (h *handler) ProcessDueRetries(ctx context.Context, now time.Time, limit int) error {
	due, err := h.webhookRepo.ListDueForRetry(ctx, now, limit)
	if err != nil {
		return err
	}
	for _, row := range due {
		endpoint, err := h.webhookRepo.GetEndpoint(ctx, row.EndpointID)
		if err != nil {
			h.logger.Errorw("failed to load endpoint for retry",
				"error", err,
				"webhook_id", row.ID,
			)
			continue
		}
		if endpoint.EndpointStatus != types.WebhookEndpointStatusActive {
			row.WebhookStatus = types.WebhookStatusFailed
			row.NextRetryAt = nil
			if err := h.webhookRepo.UpdateWebhook(ctx, row); err != nil {
				return err
			}
			continue
		}
		if err := h.deliver(ctx, row, endpoint); err != nil {
			h.logger.Errorw("webhook redelivery failed",
				"error", err,
				"webhook_id", row.ID,
			)
		}
	}
	return nil
}

// deliver performs one signed HTTP delivery and records the attempt
func (h *handler) deliver(ctx context.Context, row *webhook.Webhook, endpoint *webhook.Endpoint) error {
	secret, err := h.signingSecret(ctx, endpoint)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempt := &webhook.DeliveryAttempt{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_ATTEMPT),
		WebhookID:     row.ID,
		AttemptNumber: row.Retries + 1,
		AttemptedAt:   now,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	reqCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	resp, sendErr := h.client.Send(reqCtx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    endpoint.URL,
		Headers: map[string]string{
			"X-Signature":  "sha256=" + Sign(row.Payload, secret),
			"X-Webhook-ID": row.ID,
			"X-Event-Name": row.EventName,
		},
		Body: row.Payload,
	})

	row.LastAttemptAt = &now
	succeeded := false
	if sendErr != nil {
		attempt.Error = sendErr.Error()
	} else {
		attempt.HTTPStatus = resp.StatusCode
		attempt.ResponseBody = string(resp.Body)
		succeeded = resp.StatusCode >= 200 && resp.StatusCode < 300
		if !succeeded {
			attempt.Error = fmt.Sprintf("endpoint returned status %d", resp.StatusCode)
		}
	}

	if err := h.webhookRepo.CreateAttempt(ctx, attempt); err != nil {
		return err
	}

	if succeeded {
		row.WebhookStatus = types.WebhookStatusSuccess
		row.NextRetryAt = nil
		return h.webhookRepo.UpdateWebhook(ctx, row)
	}

	row.Retries++
	if row.Retries >= h.config.MaxRetries {
		row.WebhookStatus = types.WebhookStatusFailed
		row.NextRetryAt = nil
		h.sentry.CaptureException(fmt.Errorf("webhook %s exhausted retries", row.ID))
	} else {
		next := now.Add(h.nextDelay(row.Retries - 1))
		row.WebhookStatus = types.WebhookStatusPending
		row.NextRetryAt = &next
	}
	return h.webhookRepo.UpdateWebhook(ctx, row)
}

// signingSecret prefers the endpoint secret and falls back to the tenant's
func (h *handler) signingSecret(ctx context.Context, endpoint *webhook.Endpoint) (string, error) {
	if endpoint.Secret != "" {
		return endpoint.Secret, nil
	}
	t, err := h.tenantRepo.Get(ctx, types.GetTenantID(ctx))
	if err != nil {
		return "", err
	}
	return t.WebhookSecret, nil
}

// nextDelay is the exponential backoff after the given number of completed
// retries, capped by the configured maximum
func (h *handler) nextDelay(retries int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.config.InitialBackoff
	b.MaxInterval = h.config.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < retries; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Sign computes the hex HMAC-SHA256 of the payload under the secret
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
