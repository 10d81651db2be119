package tenant

import "context"

type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error

	// NextInvoiceSequence atomically increments and returns the tenant's
	// invoice sequence number
	NextInvoiceSequence(ctx context.Context, tenantID string) (int64, error)
}
