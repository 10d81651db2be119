package auth

import (
	"context"
	"time"
)

type Repository interface {
	CreateAPIKey(ctx context.Context, k *APIKey) error
	// GetAPIKeyByHash looks a key up across tenants; the key row carries
	// its tenant
	GetAPIKeyByHash(ctx context.Context, hashedKey string) (*APIKey, error)
	UpdateLastUsed(ctx context.Context, id string, usedAt time.Time) error
	RevokeAPIKey(ctx context.Context, id string) error
	ListAPIKeys(ctx context.Context) ([]*APIKey, error)
}
