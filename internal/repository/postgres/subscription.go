package postgres

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

var subscriptionSortFields = []string{"created_at", "updated_at", "external_id", "current_period_end"}

type subscriptionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

const subscriptionColumns = `
	id, external_id, customer_id, plan_id, subscription_status, billing_time,
	subscription_at, started_at, trial_period_days, pay_in_advance,
	current_period_start, current_period_end, previous_plan_id,
	on_termination_action, paused_at, resumed_at, canceled_at, terminated_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, external_id, customer_id, plan_id, subscription_status, billing_time,
			subscription_at, started_at, trial_period_days, pay_in_advance,
			current_period_start, current_period_end, previous_plan_id,
			on_termination_action, paused_at, resumed_at, canceled_at, terminated_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :external_id, :customer_id, :plan_id, :subscription_status, :billing_time,
			:subscription_at, :started_at, :trial_period_days, :pay_in_advance,
			:current_period_start, :current_period_end, :previous_plan_id,
			:on_termination_action, :paused_at, :resumed_at, :canceled_at, :terminated_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, sub)
	return wrapErr(err, "Failed to create subscription, external_id may already exist")
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Subscription not found")
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE external_id = $1 AND tenant_id = $2 AND status != $3`,
		externalID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Subscription not found")
	}
	return &sub, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter types.Filter) ([]*subscription.Subscription, int, error) {
	sort, err := filter.ParseOrderBy(subscriptionSortFields, "created_at")
	if err != nil {
		return nil, 0, err
	}

	subs := []*subscription.Subscription{}
	err = r.db.Querier(ctx).SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE tenant_id = $1 AND status != $2
		ORDER BY `+sort.Field+` `+string(sort.Direction)+`
		LIMIT $3 OFFSET $4`,
		types.GetTenantID(ctx), types.StatusDeleted, filter.GetLimit(), filter.GetSkip())
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to list subscriptions")
	}

	var total int
	err = r.db.Querier(ctx).GetContext(ctx, &total, `
		SELECT COUNT(*) FROM subscriptions
		WHERE tenant_id = $1 AND status != $2`,
		types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to count subscriptions")
	}
	return subs, total, nil
}

func (r *subscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	subs := []*subscription.Subscription{}
	err := r.db.Querier(ctx).SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE customer_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at`,
		customerID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list customer subscriptions")
	}
	return subs, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			plan_id = :plan_id,
			subscription_status = :subscription_status,
			started_at = :started_at,
			trial_period_days = :trial_period_days,
			pay_in_advance = :pay_in_advance,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			previous_plan_id = :previous_plan_id,
			on_termination_action = :on_termination_action,
			paused_at = :paused_at,
			resumed_at = :resumed_at,
			canceled_at = :canceled_at,
			terminated_at = :terminated_at,
			status = :status,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, sub)
	return wrapErr(err, "Failed to update subscription")
}

func (r *subscriptionRepository) ListDueForInvoicing(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	subs := []*subscription.Subscription{}
	err := r.db.Querier(ctx).SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE tenant_id = $1 AND status != $2
		  AND subscription_status IN ($3, $4)
		  AND current_period_end <= $5
		ORDER BY current_period_end`,
		types.GetTenantID(ctx), types.StatusDeleted,
		types.SubscriptionStatusActive, types.SubscriptionStatusCanceled, now)
	if err != nil {
		return nil, wrapErr(err, "Failed to list subscriptions due for invoicing")
	}
	return subs, nil
}

func (r *subscriptionRepository) ListPendingActivation(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	subs := []*subscription.Subscription{}
	err := r.db.Querier(ctx).SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE tenant_id = $1 AND status != $2
		  AND subscription_status = $3
		  AND subscription_at <= $4
		ORDER BY subscription_at`,
		types.GetTenantID(ctx), types.StatusDeleted, types.SubscriptionStatusPending, now)
	if err != nil {
		return nil, wrapErr(err, "Failed to list pending subscriptions")
	}
	return subs, nil
}
