package service

import (
	"context"
	"time"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/events"
	"github.com/billix/billix/internal/domain/metric"
	"github.com/billix/billix/internal/domain/subscription"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type UsageService interface {
	GetUsage(ctx context.Context, req *dto.GetUsageRequest) (*dto.GetUsageResponse, error)
	GetUsageByMetric(ctx context.Context, req *dto.GetUsageByMetricRequest) (*dto.GetUsageResponse, error)

	// GetChargeUsage aggregates the billing-period usage a charge is
	// priced over, honoring charge filters and recurring metrics
	GetChargeUsage(ctx context.Context, sub *subscription.Subscription, ch *charge.Charge, m *metric.Metric, periodStart, periodEnd time.Time) (*events.AggregationResult, error)

	// RollupDailyUsage recomputes the (subscription, metric, date) rollup
	RollupDailyUsage(ctx context.Context, sub *subscription.Subscription, m *metric.Metric, date time.Time) error
}

type usageService struct {
	ServiceParams
}

func NewUsageService(params ServiceParams) UsageService {
	return &usageService{ServiceParams: params}
}

func (s *usageService) GetUsage(ctx context.Context, req *dto.GetUsageRequest) (*dto.GetUsageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	result, err := s.EventRepo.GetUsage(ctx, req.ToUsageParams())
	if err != nil {
		return nil, err
	}
	return dto.FromAggregationResult(result, req.Code, req.AggregationType), nil
}

func (s *usageService) GetUsageByMetric(ctx context.Context, req *dto.GetUsageByMetricRequest) (*dto.GetUsageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m, err := s.MetricRepo.Get(ctx, req.MetricID)
	if err != nil {
		return nil, err
	}

	result, err := s.aggregate(ctx, &events.UsageParams{
		Code:               m.Code,
		ExternalCustomerID: req.ExternalCustomerID,
		StartTime:          req.StartTime.UTC(),
		EndTime:            req.EndTime.UTC(),
		AggregationType:    m.AggregationType,
		FieldName:          m.FieldName,
		PropertyFilters:    req.Filters,
	}, m, nil)
	if err != nil {
		return nil, err
	}
	return dto.FromAggregationResult(result, m.Code, m.AggregationType), nil
}

func (s *usageService) GetChargeUsage(ctx context.Context, sub *subscription.Subscription, ch *charge.Charge, m *metric.Metric, periodStart, periodEnd time.Time) (*events.AggregationResult, error) {
	cust, err := s.CustomerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}

	params := &events.UsageParams{
		Code:               m.Code,
		ExternalCustomerID: cust.ExternalID,
		StartTime:          periodStart,
		EndTime:            periodEnd,
		AggregationType:    m.AggregationType,
		FieldName:          m.FieldName,
	}

	if len(ch.Filters) == 0 {
		return s.aggregate(ctx, params, m, sub)
	}

	// Events are claimed by the first filter that matches them; the
	// charge's usage is the aggregate over all claimed events. A charge
	// whose filters match nothing falls back to unfiltered aggregation.
	matched, err := s.EventRepo.GetRawEvents(ctx, params)
	if err != nil {
		return nil, err
	}
	claimed := make([]*events.Event, 0, len(matched))
	for _, e := range matched {
		for _, f := range ch.Filters {
			if f.Matches(e.Properties) {
				claimed = append(claimed, e)
				break
			}
		}
	}
	if len(claimed) == 0 {
		return s.aggregate(ctx, params, m, sub)
	}

	claimed, err = s.applyRecurring(ctx, claimed, params, m, sub)
	if err != nil {
		return nil, err
	}
	result, err := events.Aggregate(claimed, m.AggregationType, m.FieldName)
	if err != nil {
		return nil, err
	}
	result.Value = applyRounding(result.Value, m.RoundingFunction, m.RoundingPrecision)
	return result, nil
}

func (s *usageService) RollupDailyUsage(ctx context.Context, sub *subscription.Subscription, m *metric.Metric, date time.Time) error {
	cust, err := s.CustomerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	result, err := s.aggregate(ctx, &events.UsageParams{
		Code:               m.Code,
		ExternalCustomerID: cust.ExternalID,
		StartTime:          day,
		EndTime:            day.AddDate(0, 0, 1),
		AggregationType:    m.AggregationType,
		FieldName:          m.FieldName,
	}, m, nil)
	if err != nil {
		return err
	}

	return s.DailyUsageRepo.Upsert(ctx, &events.DailyUsage{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DAILY_USAGE),
		TenantID:       types.GetTenantID(ctx),
		SubscriptionID: sub.ID,
		MetricID:       m.ID,
		Date:           day,
		UsageValue:     result.Value,
		EventsCount:    result.EventsCount,
	})
}

// aggregate runs the store-side aggregation, layering recurring state and
// rounding on top. sub may be nil when no billing period applies.
func (s *usageService) aggregate(ctx context.Context, params *events.UsageParams, m *metric.Metric, sub *subscription.Subscription) (*events.AggregationResult, error) {
	if !m.AggregationType.Validate() {
		return nil, ierr.NewError("unknown aggregation type").
			WithHintf("Aggregation type %s is not recognized", m.AggregationType).
			Mark(ierr.ErrValidation)
	}

	var result *events.AggregationResult
	var err error
	if m.Recurring && sub != nil {
		matched, rerr := s.EventRepo.GetRawEvents(ctx, params)
		if rerr != nil {
			return nil, rerr
		}
		matched, rerr = s.applyRecurring(ctx, matched, params, m, sub)
		if rerr != nil {
			return nil, rerr
		}
		result, err = events.Aggregate(matched, m.AggregationType, m.FieldName)
	} else {
		result, err = s.EventRepo.GetUsage(ctx, params)
	}
	if err != nil {
		return nil, err
	}

	result.Value = applyRounding(result.Value, m.RoundingFunction, m.RoundingPrecision)
	return result, nil
}

// applyRecurring drops events whose key was already seen in the previous
// billing period
func (s *usageService) applyRecurring(ctx context.Context, matched []*events.Event, params *events.UsageParams, m *metric.Metric, sub *subscription.Subscription) ([]*events.Event, error) {
	if !m.Recurring || sub == nil {
		return matched, nil
	}

	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	prevEnd := params.StartTime
	prevStart, err := previousPeriodStart(prevEnd, p.Interval)
	if err != nil {
		return nil, err
	}
	previous, err := s.EventRepo.GetRawEvents(ctx, &events.UsageParams{
		Code:               params.Code,
		ExternalCustomerID: params.ExternalCustomerID,
		StartTime:          prevStart,
		EndTime:            prevEnd,
		AggregationType:    params.AggregationType,
		FieldName:          params.FieldName,
		PropertyFilters:    params.PropertyFilters,
	})
	if err != nil {
		return nil, err
	}

	previousKeys := make(map[string]struct{}, len(previous))
	for _, e := range previous {
		if key, ok := e.Key(m.FieldName); ok {
			previousKeys[key] = struct{}{}
		}
	}
	return events.FilterRecurring(matched, previousKeys, m.AggregationType, m.FieldName), nil
}

func previousPeriodStart(periodStart time.Time, period types.BillingPeriod) (time.Time, error) {
	switch period {
	case types.BILLING_PERIOD_WEEKLY:
		return types.AddClampedDate(periodStart, 0, 0, -7), nil
	case types.BILLING_PERIOD_MONTHLY:
		return types.AddClampedDate(periodStart, 0, -1, 0), nil
	case types.BILLING_PERIOD_QUARTERLY:
		return types.AddClampedDate(periodStart, 0, -3, 0), nil
	case types.BILLING_PERIOD_YEARLY:
		return types.AddClampedDate(periodStart, -1, 0, 0), nil
	default:
		return periodStart, ierr.NewError("invalid billing period").
			WithHintf("Billing period %s is not recognized", period).
			Mark(ierr.ErrValidation)
	}
}

func applyRounding(value decimal.Decimal, fn types.RoundingFunction, precision int32) decimal.Decimal {
	switch fn {
	case types.RoundingRound:
		return value.Round(precision)
	case types.RoundingCeil:
		return value.RoundCeil(precision)
	case types.RoundingFloor:
		return value.RoundFloor(precision)
	default:
		return value
	}
}
