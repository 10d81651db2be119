package postgres

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/lease"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type leaseRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewLeaseRepository(db postgres.IClient, logger *logger.Logger) lease.Repository {
	return &leaseRepository{db: db, logger: logger}
}

// Acquire races on the (tenant_id, task, period_key) unique index. The
// loser's insert is swallowed by ON CONFLICT and reports zero rows.
func (r *leaseRepository) Acquire(ctx context.Context, task types.ScheduledTask, periodKey string) (bool, error) {
	result, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO scheduler_leases (id, task, period_key, acquired_at, tenant_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, task, period_key) DO NOTHING`,
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TASK_LEASE),
		task, periodKey, time.Now().UTC(), types.GetTenantID(ctx))
	if err != nil {
		return false, wrapErr(err, "Failed to acquire scheduler lease")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "Failed to read lease insert result")
	}
	return rows > 0, nil
}

func (r *leaseRepository) Release(ctx context.Context, task types.ScheduledTask, periodKey string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		DELETE FROM scheduler_leases
		WHERE tenant_id = $1 AND task = $2 AND period_key = $3`,
		types.GetTenantID(ctx), task, periodKey)
	return wrapErr(err, "Failed to release scheduler lease")
}
