package testutil

import (
	"context"
	"sync"

	"github.com/billix/billix/internal/types"
)

// InMemoryLeaseStore mirrors the unique-insert contract of the relational
// lease table
type InMemoryLeaseStore struct {
	mu     sync.Mutex
	leases map[string]struct{}
}

func NewInMemoryLeaseStore() *InMemoryLeaseStore {
	return &InMemoryLeaseStore{leases: make(map[string]struct{})}
}

func leaseKey(ctx context.Context, task types.ScheduledTask, periodKey string) string {
	return types.GetTenantID(ctx) + "/" + string(task) + "/" + periodKey
}

func (s *InMemoryLeaseStore) Acquire(ctx context.Context, task types.ScheduledTask, periodKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := leaseKey(ctx, task, periodKey)
	if _, held := s.leases[key]; held {
		return false, nil
	}
	s.leases[key] = struct{}{}
	return true, nil
}

func (s *InMemoryLeaseStore) Release(ctx context.Context, task types.ScheduledTask, periodKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, leaseKey(ctx, task, periodKey))
	return nil
}

func (s *InMemoryLeaseStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases = make(map[string]struct{})
}
