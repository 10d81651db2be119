package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/events"
	"github.com/billix/billix/internal/domain/metric"
	"github.com/billix/billix/internal/domain/plan"
	"github.com/billix/billix/internal/domain/subscription"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type UsageServiceSuite struct {
	testutil.BaseServiceTestSuite
	service UsageService
	seq     int
}

func TestUsageService(t *testing.T) {
	suite.Run(t, new(UsageServiceSuite))
}

func (s *UsageServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewUsageService(newServiceParams(&s.BaseServiceTestSuite))
	s.seq = 0

	cust := &customer.Customer{
		ID:         "cust-1",
		ExternalID: "ext-1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), cust))
}

func (s *UsageServiceSuite) seedMetric(mutate func(*metric.Metric)) *metric.Metric {
	m := &metric.Metric{
		ID:              "metric-1",
		Code:            "api_calls",
		Name:            "API calls",
		AggregationType: types.AggregationCount,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	if mutate != nil {
		mutate(m)
	}
	s.Require().NoError(s.GetStores().MetricRepo.Create(s.GetContext(), m))
	return m
}

func (s *UsageServiceSuite) ingest(code string, at time.Time, properties map[string]interface{}) {
	s.seq++
	event := events.NewEvent(
		types.DefaultTenantID,
		fmt.Sprintf("txn-%d", s.seq),
		"ext-1",
		code,
		properties,
		at,
	)
	inserted, err := s.GetStores().EventRepo.InsertEvent(s.GetContext(), event)
	s.Require().NoError(err)
	s.Require().True(inserted)
}

func (s *UsageServiceSuite) usageFor(m *metric.Metric, from, to time.Time) *dto.GetUsageResponse {
	resp, err := s.service.GetUsageByMetric(s.GetContext(), &dto.GetUsageByMetricRequest{
		MetricID:           m.ID,
		ExternalCustomerID: "ext-1",
		StartTime:          from,
		EndTime:            to,
	})
	s.Require().NoError(err)
	return resp
}

func (s *UsageServiceSuite) TestCountAggregation() {
	m := s.seedMetric(nil)
	now := s.GetNow()
	for i := 0; i < 5; i++ {
		s.ingest("api_calls", now.Add(-time.Hour), nil)
	}
	// outside the window
	s.ingest("api_calls", now.AddDate(0, 0, -2), nil)

	resp := s.usageFor(m, now.AddDate(0, 0, -1), now)
	s.Equal("5.0000", resp.Value)
	s.Equal(uint64(5), resp.EventsCount)
}

func (s *UsageServiceSuite) TestSumAggregation() {
	m := s.seedMetric(func(m *metric.Metric) {
		m.AggregationType = types.AggregationSum
		m.FieldName = "bytes"
	})
	now := s.GetNow()
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"bytes": 100})
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"bytes": "25.5"})
	// events without the field contribute nothing
	s.ingest("api_calls", now.Add(-time.Hour), nil)

	resp := s.usageFor(m, now.AddDate(0, 0, -1), now)
	s.Equal("125.5000", resp.Value)
	s.Equal(uint64(3), resp.EventsCount)
}

func (s *UsageServiceSuite) TestMaxAggregation() {
	m := s.seedMetric(func(m *metric.Metric) {
		m.AggregationType = types.AggregationMax
		m.FieldName = "size"
	})
	now := s.GetNow()
	for _, size := range []int{10, 42, 7} {
		s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"size": size})
	}

	resp := s.usageFor(m, now.AddDate(0, 0, -1), now)
	s.Equal("42.0000", resp.Value)
}

func (s *UsageServiceSuite) TestUniqueCountAggregation() {
	m := s.seedMetric(func(m *metric.Metric) {
		m.AggregationType = types.AggregationUniqueCount
		m.FieldName = "user_id"
	})
	now := s.GetNow()
	for _, user := range []string{"alice", "bob", "alice", "carol", "bob"} {
		s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"user_id": user})
	}

	resp := s.usageFor(m, now.AddDate(0, 0, -1), now)
	s.Equal("3.0000", resp.Value)
	s.Equal(uint64(5), resp.EventsCount)
}

func (s *UsageServiceSuite) TestRoundingApplied() {
	m := s.seedMetric(func(m *metric.Metric) {
		m.AggregationType = types.AggregationSum
		m.FieldName = "bytes"
		m.RoundingFunction = types.RoundingCeil
		m.RoundingPrecision = 0
	})
	now := s.GetNow()
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"bytes": "1.25"})
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"bytes": "2.25"})

	resp := s.usageFor(m, now.AddDate(0, 0, -1), now)
	s.Equal("4.0000", resp.Value)
}

func (s *UsageServiceSuite) TestReservedAggregationRejected() {
	m := s.seedMetric(func(m *metric.Metric) {
		m.AggregationType = types.AggregationWeightedSum
		m.FieldName = "weight"
	})
	now := s.GetNow()
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"weight": 1})

	_, err := s.service.GetUsageByMetric(s.GetContext(), &dto.GetUsageByMetricRequest{
		MetricID:           m.ID,
		ExternalCustomerID: "ext-1",
		StartTime:          now.AddDate(0, 0, -1),
		EndTime:            now,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *UsageServiceSuite) seedSubscription() *subscription.Subscription {
	p := &plan.Plan{
		ID:        "plan-1",
		Code:      "starter",
		Name:      "Starter",
		Interval:  types.BILLING_PERIOD_MONTHLY,
		Amount:    decimal.Zero,
		Currency:  "usd",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))

	sub := &subscription.Subscription{
		ID:                 "sub-1",
		ExternalID:         "ext-sub-1",
		CustomerID:         "cust-1",
		PlanID:             p.ID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodStart: s.GetNow().AddDate(0, -1, 0),
		CurrentPeriodEnd:   s.GetNow(),
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *UsageServiceSuite) TestChargeFilterFirstMatchWins() {
	m := s.seedMetric(nil)
	sub := s.seedSubscription()
	now := s.GetNow()

	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"region": "us", "tier": "pro"})
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"region": "us"})
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"region": "eu"})

	ch := &charge.Charge{
		ID:       "charge-1",
		PlanID:   sub.PlanID,
		MetricID: m.ID,
		Model:    types.ChargeModelStandard,
		Filters: []charge.Filter{
			{ID: "f-1", Values: []charge.FilterValue{{Key: "region", Value: "us"}}},
			// never claims anything: region=us events are taken first
			{ID: "f-2", Values: []charge.FilterValue{{Key: "tier", Value: "pro"}}},
		},
	}

	result, err := s.service.GetChargeUsage(s.GetContext(), sub, ch, m, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("2", result.Value.String())
}

func (s *UsageServiceSuite) TestChargeFilterFallsBackWhenNothingMatches() {
	m := s.seedMetric(nil)
	sub := s.seedSubscription()
	now := s.GetNow()

	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"region": "eu"})
	s.ingest("api_calls", now.Add(-time.Hour), map[string]interface{}{"region": "eu"})

	ch := &charge.Charge{
		ID:       "charge-1",
		PlanID:   sub.PlanID,
		MetricID: m.ID,
		Model:    types.ChargeModelStandard,
		Filters: []charge.Filter{
			{ID: "f-1", Values: []charge.FilterValue{{Key: "region", Value: "mars"}}},
		},
	}

	result, err := s.service.GetChargeUsage(s.GetContext(), sub, ch, m, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("2", result.Value.String())
}

func (s *UsageServiceSuite) TestRecurringCountsOnlyFirstSeenKeys() {
	m := s.seedMetric(func(m *metric.Metric) {
		m.Recurring = true
		m.FieldName = "user_id"
	})
	sub := s.seedSubscription()

	// alice was already counted in the previous period
	prev := sub.CurrentPeriodStart.Add(-time.Hour)
	s.ingest("api_calls", prev, map[string]interface{}{"user_id": "alice"})

	current := sub.CurrentPeriodStart.Add(time.Hour)
	s.ingest("api_calls", current, map[string]interface{}{"user_id": "alice"})
	s.ingest("api_calls", current, map[string]interface{}{"user_id": "bob"})

	result, err := s.service.GetChargeUsage(s.GetContext(), sub, &charge.Charge{}, m, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("1", result.Value.String())
}

func (s *UsageServiceSuite) TestDailyRollupUpserts() {
	m := s.seedMetric(func(m *metric.Metric) {
		m.AggregationType = types.AggregationSum
		m.FieldName = "bytes"
	})
	sub := s.seedSubscription()
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	s.ingest("api_calls", day.Add(2*time.Hour), map[string]interface{}{"bytes": 10})
	s.ingest("api_calls", day.Add(3*time.Hour), map[string]interface{}{"bytes": 5})

	s.Require().NoError(s.service.RollupDailyUsage(s.GetContext(), sub, m, day))

	rollup, err := s.GetStores().DailyUsageRepo.Get(s.GetContext(), sub.ID, m.ID, day)
	s.NoError(err)
	s.Equal("15", rollup.UsageValue.String())
	s.Equal(uint64(2), rollup.EventsCount)

	// re-running the rollup replaces the row instead of duplicating it
	s.ingest("api_calls", day.Add(4*time.Hour), map[string]interface{}{"bytes": 1})
	s.Require().NoError(s.service.RollupDailyUsage(s.GetContext(), sub, m, day))

	rollup, err = s.GetStores().DailyUsageRepo.Get(s.GetContext(), sub.ID, m.ID, day)
	s.NoError(err)
	s.Equal("16", rollup.UsageValue.String())
	s.Equal(uint64(3), rollup.EventsCount)
}
