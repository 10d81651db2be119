package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/alert"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type alertRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewAlertRepository(db postgres.IClient, logger *logger.Logger) alert.Repository {
	return &alertRepository{db: db, logger: logger}
}

const alertColumns = `
	id, subscription_id, metric_id, name, threshold, recurring, alert_status,
	triggered_count, last_triggered_at, period_start,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *alertRepository) Create(ctx context.Context, a *alert.UsageAlert) error {
	query := `
		INSERT INTO usage_alerts (
			id, subscription_id, metric_id, name, threshold, recurring, alert_status,
			triggered_count, last_triggered_at, period_start,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :metric_id, :name, :threshold, :recurring, :alert_status,
			:triggered_count, :last_triggered_at, :period_start,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, a)
	return wrapErr(err, "Failed to create usage alert")
}

func (r *alertRepository) Get(ctx context.Context, id string) (*alert.UsageAlert, error) {
	var a alert.UsageAlert
	err := r.db.Querier(ctx).GetContext(ctx, &a, `
		SELECT `+alertColumns+`
		FROM usage_alerts
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Usage alert not found")
	}
	return &a, nil
}

func (r *alertRepository) Update(ctx context.Context, a *alert.UsageAlert) error {
	query := `
		UPDATE usage_alerts SET
			name = :name,
			threshold = :threshold,
			recurring = :recurring,
			alert_status = :alert_status,
			triggered_count = :triggered_count,
			last_triggered_at = :last_triggered_at,
			period_start = :period_start,
			status = :status,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, a)
	return wrapErr(err, "Failed to update usage alert")
}

func (r *alertRepository) ListActiveBySubscription(ctx context.Context, subscriptionID string) ([]*alert.UsageAlert, error) {
	alerts := []*alert.UsageAlert{}
	err := r.db.Querier(ctx).SelectContext(ctx, &alerts, `
		SELECT `+alertColumns+`
		FROM usage_alerts
		WHERE subscription_id = $1 AND tenant_id = $2 AND status != $3
		  AND alert_status = $4
		ORDER BY created_at, id`,
		subscriptionID, types.GetTenantID(ctx), types.StatusDeleted,
		types.UsageAlertStatusActive)
	if err != nil {
		return nil, wrapErr(err, "Failed to list subscription alerts")
	}
	return alerts, nil
}

func (r *alertRepository) ListActiveByMetric(ctx context.Context, metricID string) ([]*alert.UsageAlert, error) {
	alerts := []*alert.UsageAlert{}
	err := r.db.Querier(ctx).SelectContext(ctx, &alerts, `
		SELECT `+alertColumns+`
		FROM usage_alerts
		WHERE metric_id = $1 AND tenant_id = $2 AND status != $3
		  AND alert_status = $4
		ORDER BY created_at, id`,
		metricID, types.GetTenantID(ctx), types.StatusDeleted,
		types.UsageAlertStatusActive)
	if err != nil {
		return nil, wrapErr(err, "Failed to list metric alerts")
	}
	return alerts, nil
}

func (r *alertRepository) CreateTrigger(ctx context.Context, t *alert.Trigger) error {
	query := `
		INSERT INTO usage_alert_triggers (
			id, alert_id, usage_value, threshold, triggered_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :alert_id, :usage_value, :threshold, :triggered_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, t)
	return wrapErr(err, "Failed to record alert trigger")
}

func (r *alertRepository) ListTriggers(ctx context.Context, alertID string) ([]*alert.Trigger, error) {
	triggers := []*alert.Trigger{}
	err := r.db.Querier(ctx).SelectContext(ctx, &triggers, `
		SELECT id, alert_id, usage_value, threshold, triggered_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM usage_alert_triggers
		WHERE alert_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY triggered_at, id`,
		alertID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list alert triggers")
	}
	return triggers, nil
}
