package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/plan"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

var planSortFields = []string{"created_at", "updated_at", "code", "name"}

type planRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPlanRepository(db postgres.IClient, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

const planColumns = `
	id, code, name, description, interval, amount, currency,
	trial_period_days, commitment,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (
			id, code, name, description, interval, amount, currency,
			trial_period_days, commitment,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :code, :name, :description, :interval, :amount, :currency,
			:trial_period_days, :commitment,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, p)
	return wrapErr(err, "Failed to create plan, code may already exist")
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.db.Querier(ctx).GetContext(ctx, &p, `
		SELECT `+planColumns+`
		FROM plans
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Plan not found")
	}
	return &p, nil
}

func (r *planRepository) GetByCode(ctx context.Context, code string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.db.Querier(ctx).GetContext(ctx, &p, `
		SELECT `+planColumns+`
		FROM plans
		WHERE code = $1 AND tenant_id = $2 AND status != $3`,
		code, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Plan not found")
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context, filter types.Filter) ([]*plan.Plan, int, error) {
	sort, err := filter.ParseOrderBy(planSortFields, "created_at")
	if err != nil {
		return nil, 0, err
	}

	plans := []*plan.Plan{}
	err = r.db.Querier(ctx).SelectContext(ctx, &plans, `
		SELECT `+planColumns+`
		FROM plans
		WHERE tenant_id = $1 AND status != $2
		ORDER BY `+sort.Field+` `+string(sort.Direction)+`
		LIMIT $3 OFFSET $4`,
		types.GetTenantID(ctx), types.StatusDeleted, filter.GetLimit(), filter.GetSkip())
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to list plans")
	}

	var total int
	err = r.db.Querier(ctx).GetContext(ctx, &total, `
		SELECT COUNT(*) FROM plans
		WHERE tenant_id = $1 AND status != $2`,
		types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to count plans")
	}
	return plans, total, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	query := `
		UPDATE plans SET
			name = :name,
			description = :description,
			amount = :amount,
			trial_period_days = :trial_period_days,
			commitment = :commitment,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status != 'deleted'`

	_, err := postgres.NamedExec(ctx, r.db, query, p)
	return wrapErr(err, "Failed to update plan")
}

func (r *planRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE plans SET status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		types.StatusDeleted, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to delete plan")
}
