package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/billix/billix/internal/domain/alert"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/events"
	"github.com/billix/billix/internal/domain/metric"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AlertServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AlertService
	sub     *subscription.Subscription
	metric  *metric.Metric
	seq     int
}

func TestAlertService(t *testing.T) {
	suite.Run(t, new(AlertServiceSuite))
}

func (s *AlertServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewAlertService(newServiceParams(&s.BaseServiceTestSuite))
	s.seq = 0

	cust := &customer.Customer{
		ID:         "cust-1",
		ExternalID: "ext-1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), cust))

	s.metric = &metric.Metric{
		ID:              "metric-1",
		Code:            "tokens",
		Name:            "Tokens",
		AggregationType: types.AggregationSum,
		FieldName:       "amount",
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().MetricRepo.Create(s.GetContext(), s.metric))

	s.sub = &subscription.Subscription{
		ID:                 "sub-1",
		ExternalID:         "ext-sub-1",
		CustomerID:         cust.ID,
		PlanID:             "plan-1",
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodStart: s.GetNow().AddDate(0, 0, -10),
		CurrentPeriodEnd:   s.GetNow().AddDate(0, 0, 20),
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().SubRepo.Create(s.GetContext(), s.sub))
}

// recordUsage inserts one event carrying the given amount into the current
// billing period
func (s *AlertServiceSuite) recordUsage(amount int64) {
	s.seq++
	event := events.NewEvent(
		types.DefaultTenantID,
		fmt.Sprintf("txn-%d", s.seq),
		"ext-1",
		"tokens",
		map[string]interface{}{"amount": amount},
		s.GetNow().AddDate(0, 0, -1),
	)
	inserted, err := s.GetStores().EventRepo.InsertEvent(s.GetContext(), event)
	s.Require().NoError(err)
	s.Require().True(inserted)
}

func (s *AlertServiceSuite) createAlert(threshold int64, recurring bool) *alert.UsageAlert {
	a := &alert.UsageAlert{
		SubscriptionID: s.sub.ID,
		MetricID:       s.metric.ID,
		Name:           "Token budget",
		Threshold:      decimal.NewFromInt(threshold),
		Recurring:      recurring,
	}
	s.Require().NoError(s.service.CreateAlert(s.GetContext(), a))
	return a
}

func (s *AlertServiceSuite) triggers(alertID string) []*alert.Trigger {
	triggers, err := s.service.ListTriggers(s.GetContext(), alertID)
	s.Require().NoError(err)
	return triggers
}

func (s *AlertServiceSuite) TestBelowThresholdDoesNotFire() {
	a := s.createAlert(100, false)
	s.recordUsage(90)

	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Empty(s.triggers(a.ID))
}

func (s *AlertServiceSuite) TestOneShotFiresOnce() {
	a := s.createAlert(100, false)
	s.recordUsage(250)

	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Len(s.triggers(a.ID), 1)

	// more usage does not re-fire a one-shot alert
	s.recordUsage(200)
	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Len(s.triggers(a.ID), 1)
}

func (s *AlertServiceSuite) TestRecurringFiresPerMultiple() {
	a := s.createAlert(100, true)
	s.recordUsage(210)

	// usage 210 crosses the threshold twice
	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Len(s.triggers(a.ID), 2)

	// re-evaluating without new usage fires nothing
	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Len(s.triggers(a.ID), 2)

	// usage 310 crosses one more multiple
	s.recordUsage(100)
	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Len(s.triggers(a.ID), 3)
}

func (s *AlertServiceSuite) TestCounterResetsOnPeriodRollover() {
	a := s.createAlert(100, false)
	s.recordUsage(150)

	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Len(s.triggers(a.ID), 1)

	// roll the billing period; the usage event stays inside the new
	// period so the alert fires again
	s.sub.CurrentPeriodStart = s.GetNow().AddDate(0, 0, -5)
	s.Require().NoError(s.GetStores().SubRepo.Update(s.GetContext(), s.sub))

	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Len(s.triggers(a.ID), 2)

	got, err := s.service.GetAlert(s.GetContext(), a.ID)
	s.NoError(err)
	s.Require().NotNil(got.PeriodStart)
	s.True(got.PeriodStart.Equal(s.sub.CurrentPeriodStart))
}

func (s *AlertServiceSuite) TestDeactivatedAlertSkipped() {
	a := s.createAlert(100, false)
	s.recordUsage(150)
	s.Require().NoError(s.service.DeactivateAlert(s.GetContext(), a.ID))

	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Empty(s.triggers(a.ID))
}

func (s *AlertServiceSuite) TestInactiveSubscriptionSkipped() {
	a := s.createAlert(100, false)
	s.recordUsage(150)

	s.sub.SubscriptionStatus = types.SubscriptionStatusCanceled
	s.Require().NoError(s.GetStores().SubRepo.Update(s.GetContext(), s.sub))

	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	s.Empty(s.triggers(a.ID))
}

func (s *AlertServiceSuite) TestTriggerSnapshotsUsage() {
	a := s.createAlert(100, false)
	s.recordUsage(150)

	s.NoError(s.service.EvaluateSubscription(s.GetContext(), s.sub.ID))
	triggers := s.triggers(a.ID)
	s.Require().Len(triggers, 1)
	s.Equal("150", triggers[0].UsageValue.String())
	s.Equal("100", triggers[0].Threshold.String())
	s.WithinDuration(time.Now().UTC(), triggers[0].TriggeredAt, time.Minute)
}
