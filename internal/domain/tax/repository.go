package tax

import (
	"context"

	"github.com/billix/billix/internal/types"
)

type Repository interface {
	Create(ctx context.Context, t *Tax) error
	Get(ctx context.Context, id string) (*Tax, error)
	GetByCode(ctx context.Context, code string) (*Tax, error)

	CreateApplied(ctx context.Context, at *AppliedTax) error
	// ListApplied returns the taxes bound to one taxable object
	ListApplied(ctx context.Context, taxableType types.TaxableType, taxableID string) ([]*AppliedTax, error)
	DeleteApplied(ctx context.Context, id string) error
}
