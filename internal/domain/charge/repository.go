package charge

import "context"

type Repository interface {
	Create(ctx context.Context, charge *Charge) error
	Get(ctx context.Context, id string) (*Charge, error)
	// GetByPlan returns the plan's charges in creation order
	GetByPlan(ctx context.Context, planID string) ([]*Charge, error)
	Update(ctx context.Context, charge *Charge) error
	Delete(ctx context.Context, id string) error
}
