package lease

import (
	"context"

	"github.com/billix/billix/internal/types"
)

type Repository interface {
	// Acquire inserts the lease row, unique on (tenant, task, period).
	// Returns false without error when another runner holds it.
	Acquire(ctx context.Context, task types.ScheduledTask, periodKey string) (bool, error)
	// Release drops the lease so a failed run can be retried within the
	// same period
	Release(ctx context.Context, task types.ScheduledTask, periodKey string) error
}
