package metric

import (
	"context"

	"github.com/billix/billix/internal/types"
)

type Repository interface {
	Create(ctx context.Context, metric *Metric) error
	Get(ctx context.Context, id string) (*Metric, error)
	GetByCode(ctx context.Context, code string) (*Metric, error)
	List(ctx context.Context, filter types.Filter) ([]*Metric, int, error)
	Update(ctx context.Context, metric *Metric) error
	Delete(ctx context.Context, id string) error
}
