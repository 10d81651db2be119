package postgres

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/auth"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type authRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewAuthRepository(db postgres.IClient, logger *logger.Logger) auth.Repository {
	return &authRepository{db: db, logger: logger}
}

const apiKeyColumns = `
	id, name, hashed_key, expires_at, last_used_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *authRepository) CreateAPIKey(ctx context.Context, k *auth.APIKey) error {
	query := `
		INSERT INTO api_keys (
			id, name, hashed_key, expires_at, last_used_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :hashed_key, :expires_at, :last_used_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, k)
	return wrapErr(err, "Failed to create API key")
}

// GetAPIKeyByHash resolves a presented key before any tenant is known, so
// the lookup is deliberately unscoped
func (r *authRepository) GetAPIKeyByHash(ctx context.Context, hashedKey string) (*auth.APIKey, error) {
	var k auth.APIKey
	err := r.db.Querier(ctx).GetContext(ctx, &k, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE hashed_key = $1 AND status != $2`,
		hashedKey, types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "API key not found")
	}
	return &k, nil
}

func (r *authRepository) UpdateLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = $1 WHERE id = $2`,
		usedAt, id)
	return wrapErr(err, "Failed to update API key usage")
}

func (r *authRepository) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE api_keys SET status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		types.StatusArchived, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to revoke API key")
}

func (r *authRepository) ListAPIKeys(ctx context.Context) ([]*auth.APIKey, error) {
	keys := []*auth.APIKey{}
	err := r.db.Querier(ctx).SelectContext(ctx, &keys, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE tenant_id = $1 AND status != $2
		ORDER BY created_at, id`,
		types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list API keys")
	}
	return keys, nil
}
