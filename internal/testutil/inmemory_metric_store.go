package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/metric"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryMetricStore struct {
	mu      sync.RWMutex
	metrics map[string]*metric.Metric
}

func NewInMemoryMetricStore() *InMemoryMetricStore {
	return &InMemoryMetricStore{metrics: make(map[string]*metric.Metric)}
}

func (s *InMemoryMetricStore) Create(ctx context.Context, m *metric.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.metrics {
		if existing.Code == m.Code && existing.Status != types.StatusDeleted {
			return ierr.NewError("metric already exists").
				WithHint("Metric with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.metrics[m.ID] = m
	return nil
}

func (s *InMemoryMetricStore) Get(ctx context.Context, id string) (*metric.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[id]
	if !ok || m.Status == types.StatusDeleted {
		return nil, ierr.NewError("metric not found").
			WithHint("Metric not found").
			Mark(ierr.ErrNotFound)
	}
	return m, nil
}

func (s *InMemoryMetricStore) GetByCode(ctx context.Context, code string) (*metric.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.metrics {
		if m.Code == code && m.Status != types.StatusDeleted {
			return m, nil
		}
	}
	return nil, ierr.NewError("metric not found").
		WithHint("Metric not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryMetricStore) List(ctx context.Context, filter types.Filter) ([]*metric.Metric, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metrics := make([]*metric.Metric, 0, len(s.metrics))
	for _, m := range s.metrics {
		if m.Status != types.StatusDeleted {
			metrics = append(metrics, m)
		}
	}
	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].CreatedAt.Before(metrics[j].CreatedAt)
	})
	total := len(metrics)
	return paginate(metrics, filter), total, nil
}

func (s *InMemoryMetricStore) Update(ctx context.Context, m *metric.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metrics[m.ID]; !ok {
		return ierr.NewError("metric not found").
			WithHint("Metric not found").
			Mark(ierr.ErrNotFound)
	}
	s.metrics[m.ID] = m
	return nil
}

func (s *InMemoryMetricStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[id]
	if !ok {
		return ierr.NewError("metric not found").
			WithHint("Metric not found").
			Mark(ierr.ErrNotFound)
	}
	m.Status = types.StatusDeleted
	return nil
}

func (s *InMemoryMetricStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = make(map[string]*metric.Metric)
}
