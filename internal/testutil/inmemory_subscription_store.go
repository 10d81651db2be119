package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billix/billix/internal/domain/subscription"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{subs: make(map[string]*subscription.Subscription)}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing.ExternalID == sub.ExternalID && existing.Status != types.StatusDeleted {
			return ierr.NewError("subscription already exists").
				WithHint("Subscription with this external ID already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok || sub.Status == types.StatusDeleted {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) GetByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.ExternalID == externalID && sub.Status != types.StatusDeleted {
			return sub, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHint("Subscription not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter types.Filter) ([]*subscription.Subscription, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := s.sorted(func(sub *subscription.Subscription) bool {
		return sub.Status != types.StatusDeleted
	})
	total := len(subs)
	return paginate(subs, filter), total, nil
}

func (s *InMemorySubscriptionStore) ListByCustomer(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(sub *subscription.Subscription) bool {
		return sub.CustomerID == customerID && sub.Status != types.StatusDeleted
	}), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		return ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *InMemorySubscriptionStore) ListDueForInvoicing(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(sub *subscription.Subscription) bool {
		if sub.Status == types.StatusDeleted || sub.CurrentPeriodEnd.After(now) {
			return false
		}
		return sub.SubscriptionStatus == types.SubscriptionStatusActive ||
			sub.SubscriptionStatus == types.SubscriptionStatusCanceled
	}), nil
}

func (s *InMemorySubscriptionStore) ListPendingActivation(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(sub *subscription.Subscription) bool {
		return sub.Status != types.StatusDeleted &&
			sub.SubscriptionStatus == types.SubscriptionStatusPending &&
			!sub.SubscriptionAt.After(now)
	}), nil
}

func (s *InMemorySubscriptionStore) sorted(keep func(*subscription.Subscription) bool) []*subscription.Subscription {
	subs := []*subscription.Subscription{}
	for _, sub := range s.subs {
		if keep(sub) {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[string]*subscription.Subscription)
}
