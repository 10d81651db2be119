package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type tenantRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewTenantRepository(db postgres.IClient, logger *logger.Logger) tenant.Repository {
	return &tenantRepository{db: db, logger: logger}
}

func (r *tenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
		INSERT INTO tenants (
			id, name, invoice_prefix, webhook_secret, rate_limit_per_minute,
			invoice_sequence, metadata, tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :invoice_prefix, :webhook_secret, :rate_limit_per_minute,
			0, :metadata, :tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, t)
	return wrapErr(err, "Failed to create tenant")
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.Querier(ctx).GetContext(ctx, &t, `
		SELECT id, name, invoice_prefix, webhook_secret, rate_limit_per_minute,
			metadata, tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM tenants
		WHERE id = $1 AND status != $2`,
		id, types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Tenant not found")
	}
	return &t, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	tenants := []*tenant.Tenant{}
	err := r.db.Querier(ctx).SelectContext(ctx, &tenants, `
		SELECT id, name, invoice_prefix, webhook_secret, rate_limit_per_minute,
			metadata, tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM tenants
		WHERE status = $1
		ORDER BY created_at`,
		types.StatusPublished)
	if err != nil {
		return nil, wrapErr(err, "Failed to list tenants")
	}
	return tenants, nil
}

func (r *tenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := `
		UPDATE tenants SET
			name = :name,
			invoice_prefix = :invoice_prefix,
			webhook_secret = :webhook_secret,
			rate_limit_per_minute = :rate_limit_per_minute,
			metadata = :metadata,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND status != 'deleted'`

	_, err := postgres.NamedExec(ctx, r.db, query, t)
	return wrapErr(err, "Failed to update tenant")
}

// NextInvoiceSequence increments the per-tenant counter under the row lock
// the UPDATE takes, so concurrent invoice creation never reuses a number
func (r *tenantRepository) NextInvoiceSequence(ctx context.Context, tenantID string) (int64, error) {
	var seq int64
	err := r.db.Querier(ctx).GetContext(ctx, &seq, `
		UPDATE tenants
		SET invoice_sequence = invoice_sequence + 1
		WHERE id = $1
		RETURNING invoice_sequence`,
		tenantID)
	if err != nil {
		return 0, wrapErr(err, "Failed to advance invoice sequence")
	}
	return seq, nil
}
