package testutil

import (
	"context"

	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
)

// MockPostgresClient satisfies postgres.IClient for service tests backed by
// in-memory stores. WithTx just runs the function; the stores have no
// transactional semantics to coordinate.
type MockPostgresClient struct {
	logger *logger.Logger
}

func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{logger: logger}
}

func (m *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (m *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}

func (m *MockPostgresClient) Close() error {
	return nil
}
