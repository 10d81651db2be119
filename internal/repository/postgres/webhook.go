package postgres

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/webhook"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
	"github.com/lib/pq"
)

type webhookRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewWebhookRepository(db postgres.IClient, logger *logger.Logger) webhook.Repository {
	return &webhookRepository{db: db, logger: logger}
}

// endpointRow carries the event filter as a postgres text array
type endpointRow struct {
	ID             string                      `db:"id"`
	URL            string                      `db:"url"`
	Secret         string                      `db:"secret"`
	EndpointStatus types.WebhookEndpointStatus `db:"endpoint_status"`
	EventFilter    pq.StringArray              `db:"event_filter"`
	types.BaseModel
}

func toEndpointRow(e *webhook.Endpoint) *endpointRow {
	return &endpointRow{
		ID:             e.ID,
		URL:            e.URL,
		Secret:         e.Secret,
		EndpointStatus: e.EndpointStatus,
		EventFilter:    pq.StringArray(e.EventFilter),
		BaseModel:      e.BaseModel,
	}
}

func (row *endpointRow) toDomain() *webhook.Endpoint {
	return &webhook.Endpoint{
		ID:             row.ID,
		URL:            row.URL,
		Secret:         row.Secret,
		EndpointStatus: row.EndpointStatus,
		EventFilter:    []string(row.EventFilter),
		BaseModel:      row.BaseModel,
	}
}

const endpointColumns = `
	id, url, secret, endpoint_status, event_filter,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *webhookRepository) CreateEndpoint(ctx context.Context, e *webhook.Endpoint) error {
	query := `
		INSERT INTO webhook_endpoints (
			id, url, secret, endpoint_status, event_filter,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :url, :secret, :endpoint_status, :event_filter,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, toEndpointRow(e))
	return wrapErr(err, "Failed to create webhook endpoint")
}

func (r *webhookRepository) GetEndpoint(ctx context.Context, id string) (*webhook.Endpoint, error) {
	var row endpointRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, `
		SELECT `+endpointColumns+`
		FROM webhook_endpoints
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Webhook endpoint not found")
	}
	return row.toDomain(), nil
}

func (r *webhookRepository) UpdateEndpoint(ctx context.Context, e *webhook.Endpoint) error {
	query := `
		UPDATE webhook_endpoints SET
			url = :url,
			secret = :secret,
			endpoint_status = :endpoint_status,
			event_filter = :event_filter,
			status = :status,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, toEndpointRow(e))
	return wrapErr(err, "Failed to update webhook endpoint")
}

func (r *webhookRepository) ListEndpoints(ctx context.Context) ([]*webhook.Endpoint, error) {
	rows := []*endpointRow{}
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, `
		SELECT `+endpointColumns+`
		FROM webhook_endpoints
		WHERE tenant_id = $1 AND status != $2
		ORDER BY created_at, id`,
		types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list webhook endpoints")
	}

	endpoints := make([]*webhook.Endpoint, 0, len(rows))
	for _, row := range rows {
		endpoints = append(endpoints, row.toDomain())
	}
	return endpoints, nil
}

const webhookColumns = `
	id, endpoint_id, event_name, object_type, object_id, payload, webhook_status,
	retries, next_retry_at, last_attempt_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *webhookRepository) CreateWebhook(ctx context.Context, w *webhook.Webhook) error {
	query := `
		INSERT INTO webhooks (
			id, endpoint_id, event_name, object_type, object_id, payload, webhook_status,
			retries, next_retry_at, last_attempt_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :endpoint_id, :event_name, :object_type, :object_id, :payload, :webhook_status,
			:retries, :next_retry_at, :last_attempt_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, w)
	return wrapErr(err, "Failed to create webhook")
}

func (r *webhookRepository) GetWebhook(ctx context.Context, id string) (*webhook.Webhook, error) {
	var w webhook.Webhook
	err := r.db.Querier(ctx).GetContext(ctx, &w, `
		SELECT `+webhookColumns+`
		FROM webhooks
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Webhook not found")
	}
	return &w, nil
}

func (r *webhookRepository) UpdateWebhook(ctx context.Context, w *webhook.Webhook) error {
	query := `
		UPDATE webhooks SET
			webhook_status = :webhook_status,
			retries = :retries,
			next_retry_at = :next_retry_at,
			last_attempt_at = :last_attempt_at,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, w)
	return wrapErr(err, "Failed to update webhook")
}

func (r *webhookRepository) ListDueForRetry(ctx context.Context, asOf time.Time, limit int) ([]*webhook.Webhook, error) {
	webhooks := []*webhook.Webhook{}
	err := r.db.Querier(ctx).SelectContext(ctx, &webhooks, `
		SELECT `+webhookColumns+`
		FROM webhooks
		WHERE tenant_id = $1 AND status != $2
		  AND webhook_status = $3
		  AND next_retry_at IS NOT NULL AND next_retry_at <= $4
		ORDER BY next_retry_at, id
		LIMIT $5`,
		types.GetTenantID(ctx), types.StatusDeleted,
		types.WebhookStatusPending, asOf, limit)
	if err != nil {
		return nil, wrapErr(err, "Failed to list webhooks due for retry")
	}
	return webhooks, nil
}

func (r *webhookRepository) CreateAttempt(ctx context.Context, a *webhook.DeliveryAttempt) error {
	query := `
		INSERT INTO webhook_delivery_attempts (
			id, webhook_id, attempt_number, http_status, response_body, error, attempted_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :webhook_id, :attempt_number, :http_status, :response_body, :error, :attempted_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, a)
	return wrapErr(err, "Failed to record delivery attempt")
}

func (r *webhookRepository) ListAttempts(ctx context.Context, webhookID string) ([]*webhook.DeliveryAttempt, error) {
	attempts := []*webhook.DeliveryAttempt{}
	err := r.db.Querier(ctx).SelectContext(ctx, &attempts, `
		SELECT id, webhook_id, attempt_number, http_status, response_body, error, attempted_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM webhook_delivery_attempts
		WHERE webhook_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY attempt_number`,
		webhookID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list delivery attempts")
	}
	return attempts, nil
}
