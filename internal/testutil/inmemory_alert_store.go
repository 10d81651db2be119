package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/alert"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryAlertStore struct {
	mu       sync.RWMutex
	alerts   map[string]*alert.UsageAlert
	triggers map[string][]*alert.Trigger
	seq      int
	order    map[string]int
}

func NewInMemoryAlertStore() *InMemoryAlertStore {
	return &InMemoryAlertStore{
		alerts:   make(map[string]*alert.UsageAlert),
		triggers: make(map[string][]*alert.Trigger),
		order:    make(map[string]int),
	}
}

func (s *InMemoryAlertStore) Create(ctx context.Context, a *alert.UsageAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[a.ID] = s.seq
	s.alerts[a.ID] = a
	return nil
}

func (s *InMemoryAlertStore) Get(ctx context.Context, id string) (*alert.UsageAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok || a.Status == types.StatusDeleted {
		return nil, ierr.NewError("usage alert not found").
			WithHint("Usage alert not found").
			Mark(ierr.ErrNotFound)
	}
	return a, nil
}

func (s *InMemoryAlertStore) Update(ctx context.Context, a *alert.UsageAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; !ok {
		return ierr.NewError("usage alert not found").
			WithHint("Usage alert not found").
			Mark(ierr.ErrNotFound)
	}
	s.alerts[a.ID] = a
	return nil
}

func (s *InMemoryAlertStore) ListActiveBySubscription(ctx context.Context, subscriptionID string) ([]*alert.UsageAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(a *alert.UsageAlert) bool {
		return a.SubscriptionID == subscriptionID &&
			a.Status != types.StatusDeleted &&
			a.AlertStatus == types.UsageAlertStatusActive
	}), nil
}

func (s *InMemoryAlertStore) ListActiveByMetric(ctx context.Context, metricID string) ([]*alert.UsageAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(a *alert.UsageAlert) bool {
		return a.MetricID == metricID &&
			a.Status != types.StatusDeleted &&
			a.AlertStatus == types.UsageAlertStatusActive
	}), nil
}

func (s *InMemoryAlertStore) CreateTrigger(ctx context.Context, t *alert.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[t.AlertID] = append(s.triggers[t.AlertID], t)
	return nil
}

func (s *InMemoryAlertStore) ListTriggers(ctx context.Context, alertID string) ([]*alert.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triggers[alertID], nil
}

func (s *InMemoryAlertStore) sorted(keep func(*alert.UsageAlert) bool) []*alert.UsageAlert {
	alerts := []*alert.UsageAlert{}
	for _, a := range s.alerts {
		if keep(a) {
			alerts = append(alerts, a)
		}
	}
	sort.Slice(alerts, func(i, j int) bool {
		return s.order[alerts[i].ID] < s.order[alerts[j].ID]
	})
	return alerts
}

func (s *InMemoryAlertStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = make(map[string]*alert.UsageAlert)
	s.triggers = make(map[string][]*alert.Trigger)
	s.order = make(map[string]int)
	s.seq = 0
}
