package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billix/billix/internal/domain/auth"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryAuthStore struct {
	mu   sync.RWMutex
	keys map[string]*auth.APIKey
}

func NewInMemoryAuthStore() *InMemoryAuthStore {
	return &InMemoryAuthStore{keys: make(map[string]*auth.APIKey)}
}

func (s *InMemoryAuthStore) CreateAPIKey(ctx context.Context, k *auth.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[k.ID] = k
	return nil
}

func (s *InMemoryAuthStore) GetAPIKeyByHash(ctx context.Context, hashedKey string) (*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.HashedKey == hashedKey && k.Status != types.StatusDeleted {
			return k, nil
		}
	}
	return nil, ierr.NewError("api key not found").
		WithHint("API key not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryAuthStore) UpdateLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return ierr.NewError("api key not found").
			WithHint("API key not found").
			Mark(ierr.ErrNotFound)
	}
	k.LastUsedAt = &usedAt
	return nil
}

func (s *InMemoryAuthStore) RevokeAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return ierr.NewError("api key not found").
			WithHint("API key not found").
			Mark(ierr.ErrNotFound)
	}
	k.Status = types.StatusArchived
	return nil
}

func (s *InMemoryAuthStore) ListAPIKeys(ctx context.Context) ([]*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := []*auth.APIKey{}
	for _, k := range s.keys {
		if k.Status != types.StatusDeleted {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.Before(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *InMemoryAuthStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]*auth.APIKey)
}
