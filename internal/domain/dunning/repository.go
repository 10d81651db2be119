package dunning

import "context"

type Repository interface {
	// CreateWithThresholds persists the campaign and thresholds atomically
	CreateWithThresholds(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, id string) (*Campaign, error)
	GetByCode(ctx context.Context, code string) (*Campaign, error)
	Update(ctx context.Context, c *Campaign) error
	// GetOrgDefault returns the campaign applied tenant-wide, if any
	GetOrgDefault(ctx context.Context) (*Campaign, error)
	List(ctx context.Context) ([]*Campaign, error)
}
