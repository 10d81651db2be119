package service

import (
	"context"

	"github.com/billix/billix/internal/domain/metric"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type MetricService interface {
	CreateMetric(ctx context.Context, m *metric.Metric) error
	GetMetric(ctx context.Context, id string) (*metric.Metric, error)
	ListMetrics(ctx context.Context, filter types.Filter) ([]*metric.Metric, int, error)
	UpdateMetric(ctx context.Context, m *metric.Metric) error
	DeleteMetric(ctx context.Context, id string) error
}

type metricService struct {
	ServiceParams
}

func NewMetricService(params ServiceParams) MetricService {
	return &metricService{ServiceParams: params}
}

func (s *metricService) CreateMetric(ctx context.Context, m *metric.Metric) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if existing, err := s.MetricRepo.GetByCode(ctx, m.Code); err == nil && existing != nil {
		return ierr.NewError("metric code already exists").
			WithHintf("A metric with code %s already exists", m.Code).
			Mark(ierr.ErrAlreadyExists)
	} else if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if m.ID == "" {
		m.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_METRIC)
	}
	for i := range m.Filters {
		if m.Filters[i].ID == "" {
			m.Filters[i].ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_METRIC_FILTER)
		}
	}
	if m.TenantID == "" {
		m.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	return s.MetricRepo.Create(ctx, m)
}

func (s *metricService) GetMetric(ctx context.Context, id string) (*metric.Metric, error) {
	return s.MetricRepo.Get(ctx, id)
}

func (s *metricService) ListMetrics(ctx context.Context, filter types.Filter) ([]*metric.Metric, int, error) {
	return s.MetricRepo.List(ctx, filter)
}

func (s *metricService) UpdateMetric(ctx context.Context, m *metric.Metric) error {
	if err := m.Validate(); err != nil {
		return err
	}
	current, err := s.MetricRepo.Get(ctx, m.ID)
	if err != nil {
		return err
	}
	// Aggregation semantics are frozen once events reference the metric
	if current.AggregationType != m.AggregationType || current.FieldName != m.FieldName {
		return ierr.NewError("aggregation cannot be changed").
			WithHint("Create a new metric instead of changing aggregation semantics").
			Mark(ierr.ErrInvalidOperation)
	}
	return s.MetricRepo.Update(ctx, m)
}

func (s *metricService) DeleteMetric(ctx context.Context, id string) error {
	return s.MetricRepo.Delete(ctx, id)
}
