package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/tax"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type taxRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewTaxRepository(db postgres.IClient, logger *logger.Logger) tax.Repository {
	return &taxRepository{db: db, logger: logger}
}

const taxColumns = `
	id, name, code, rate, description,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *taxRepository) Create(ctx context.Context, t *tax.Tax) error {
	query := `
		INSERT INTO taxes (
			id, name, code, rate, description,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :code, :rate, :description,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, t)
	return wrapErr(err, "Failed to create tax, code may already exist")
}

func (r *taxRepository) Get(ctx context.Context, id string) (*tax.Tax, error) {
	var t tax.Tax
	err := r.db.Querier(ctx).GetContext(ctx, &t, `
		SELECT `+taxColumns+`
		FROM taxes
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Tax not found")
	}
	return &t, nil
}

func (r *taxRepository) GetByCode(ctx context.Context, code string) (*tax.Tax, error) {
	var t tax.Tax
	err := r.db.Querier(ctx).GetContext(ctx, &t, `
		SELECT `+taxColumns+`
		FROM taxes
		WHERE code = $1 AND tenant_id = $2 AND status != $3`,
		code, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Tax not found")
	}
	return &t, nil
}

func (r *taxRepository) CreateApplied(ctx context.Context, at *tax.AppliedTax) error {
	query := `
		INSERT INTO applied_taxes (
			id, tax_id, taxable_type, taxable_id,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :tax_id, :taxable_type, :taxable_id,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, at)
	return wrapErr(err, "Failed to apply tax")
}

func (r *taxRepository) ListApplied(ctx context.Context, taxableType types.TaxableType, taxableID string) ([]*tax.AppliedTax, error) {
	applied := []*tax.AppliedTax{}
	err := r.db.Querier(ctx).SelectContext(ctx, &applied, `
		SELECT id, tax_id, taxable_type, taxable_id,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM applied_taxes
		WHERE taxable_type = $1 AND taxable_id = $2 AND tenant_id = $3 AND status != $4
		ORDER BY created_at, id`,
		taxableType, taxableID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list applied taxes")
	}
	return applied, nil
}

func (r *taxRepository) DeleteApplied(ctx context.Context, id string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE applied_taxes SET status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		types.StatusDeleted, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to remove applied tax")
}
