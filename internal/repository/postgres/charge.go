package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type chargeRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewChargeRepository(db postgres.IClient, logger *logger.Logger) charge.Repository {
	return &chargeRepository{db: db, logger: logger}
}

// chargeRow stores the model parameters and filters as JSONB
type chargeRow struct {
	ID                 string            `db:"id"`
	PlanID             string            `db:"plan_id"`
	MetricID           string            `db:"metric_id"`
	Model              types.ChargeModel `db:"model"`
	Properties         []byte            `db:"properties"`
	Filters            []byte            `db:"filters"`
	InvoiceDisplayName string            `db:"invoice_display_name"`
	types.BaseModel
}

func toChargeRow(c *charge.Charge) *chargeRow {
	return &chargeRow{
		ID:                 c.ID,
		PlanID:             c.PlanID,
		MetricID:           c.MetricID,
		Model:              c.Model,
		Properties:         mustJSON(c.Properties),
		Filters:            mustJSON(c.Filters),
		InvoiceDisplayName: c.InvoiceDisplayName,
		BaseModel:          c.BaseModel,
	}
}

func (row *chargeRow) toDomain() (*charge.Charge, error) {
	c := &charge.Charge{
		ID:                 row.ID,
		PlanID:             row.PlanID,
		MetricID:           row.MetricID,
		Model:              row.Model,
		InvoiceDisplayName: row.InvoiceDisplayName,
		BaseModel:          row.BaseModel,
	}
	if err := fromJSON(row.Properties, &c.Properties); err != nil {
		return nil, err
	}
	if err := fromJSON(row.Filters, &c.Filters); err != nil {
		return nil, err
	}
	return c, nil
}

const chargeColumns = `
	id, plan_id, metric_id, model, properties, filters, invoice_display_name,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *chargeRepository) Create(ctx context.Context, c *charge.Charge) error {
	query := `
		INSERT INTO charges (
			id, plan_id, metric_id, model, properties, filters, invoice_display_name,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :plan_id, :metric_id, :model, :properties, :filters, :invoice_display_name,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, toChargeRow(c))
	return wrapErr(err, "Failed to create charge")
}

func (r *chargeRepository) Get(ctx context.Context, id string) (*charge.Charge, error) {
	var row chargeRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, `
		SELECT `+chargeColumns+`
		FROM charges
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Charge not found")
	}
	return row.toDomain()
}

func (r *chargeRepository) GetByPlan(ctx context.Context, planID string) ([]*charge.Charge, error) {
	rows := []*chargeRow{}
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, `
		SELECT `+chargeColumns+`
		FROM charges
		WHERE plan_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at, id`,
		planID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list plan charges")
	}

	charges := make([]*charge.Charge, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, nil
}

func (r *chargeRepository) Update(ctx context.Context, c *charge.Charge) error {
	query := `
		UPDATE charges SET
			properties = :properties,
			filters = :filters,
			invoice_display_name = :invoice_display_name,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status != 'deleted'`

	_, err := postgres.NamedExec(ctx, r.db, query, toChargeRow(c))
	return wrapErr(err, "Failed to update charge")
}

func (r *chargeRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE charges SET status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		types.StatusDeleted, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to delete charge")
}
