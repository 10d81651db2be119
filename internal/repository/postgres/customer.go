package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

var customerSortFields = []string{"created_at", "updated_at", "external_id", "name"}

type customerRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewCustomerRepository(db postgres.IClient, logger *logger.Logger) customer.Repository {
	return &customerRepository{db: db, logger: logger}
}

const customerColumns = `
	id, external_id, name, email, currency, timezone,
	invoice_grace_period, net_payment_term, dunning_campaign_id, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			id, external_id, name, email, currency, timezone,
			invoice_grace_period, net_payment_term, dunning_campaign_id, metadata,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :external_id, :name, :email, :currency, :timezone,
			:invoice_grace_period, :net_payment_term, :dunning_campaign_id, :metadata,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, c)
	return wrapErr(err, "Failed to create customer, external_id may already exist")
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.db.Querier(ctx).GetContext(ctx, &c, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Customer not found")
	}
	return &c, nil
}

func (r *customerRepository) GetByExternalID(ctx context.Context, externalID string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.db.Querier(ctx).GetContext(ctx, &c, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE external_id = $1 AND tenant_id = $2 AND status != $3`,
		externalID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Customer not found")
	}
	return &c, nil
}

func (r *customerRepository) List(ctx context.Context, filter types.Filter) ([]*customer.Customer, int, error) {
	sort, err := filter.ParseOrderBy(customerSortFields, "created_at")
	if err != nil {
		return nil, 0, err
	}

	customers := []*customer.Customer{}
	err = r.db.Querier(ctx).SelectContext(ctx, &customers, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE tenant_id = $1 AND status != $2
		ORDER BY `+sort.Field+` `+string(sort.Direction)+`
		LIMIT $3 OFFSET $4`,
		types.GetTenantID(ctx), types.StatusDeleted, filter.GetLimit(), filter.GetSkip())
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to list customers")
	}

	var total int
	err = r.db.Querier(ctx).GetContext(ctx, &total, `
		SELECT COUNT(*) FROM customers
		WHERE tenant_id = $1 AND status != $2`,
		types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to count customers")
	}
	return customers, total, nil
}

func (r *customerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers SET
			name = :name,
			email = :email,
			timezone = :timezone,
			invoice_grace_period = :invoice_grace_period,
			net_payment_term = :net_payment_term,
			dunning_campaign_id = :dunning_campaign_id,
			metadata = :metadata,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status != 'deleted'`

	_, err := postgres.NamedExec(ctx, r.db, query, c)
	return wrapErr(err, "Failed to update customer")
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE customers SET status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		types.StatusDeleted, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to delete customer")
}
