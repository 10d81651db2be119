package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/domain/plan"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/domain/tenant"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
	clock   time.Time
	seq     int
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionService(newServiceParams(&s.BaseServiceTestSuite))
	s.seq = 0

	s.clock = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return s.clock }

	err := s.GetStores().TenantRepo.Create(s.GetContext(), &tenant.Tenant{
		ID:            types.DefaultTenantID,
		Name:          "Acme",
		InvoicePrefix: "ACME",
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	})
	s.Require().NoError(err)

	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), &customer.Customer{
		ID:         "cust-1",
		ExternalID: "ext-1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}))

	s.Require().NoError(s.GetStores().PlanRepo.Create(s.GetContext(), &plan.Plan{
		ID:        "plan-1",
		Code:      "starter",
		Name:      "Starter",
		Interval:  types.BILLING_PERIOD_MONTHLY,
		Amount:    decimal.NewFromInt(10),
		Currency:  "usd",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *SubscriptionServiceSuite) TearDownTest() {
	timeNow = func() time.Time { return time.Now().UTC() }
	s.BaseServiceTestSuite.TearDownTest()
}

func (s *SubscriptionServiceSuite) createSubscription(mutate func(*subscription.Subscription)) *subscription.Subscription {
	s.seq++
	sub := &subscription.Subscription{
		ExternalID: fmt.Sprintf("ext-sub-%d", s.seq),
		CustomerID: "cust-1",
		PlanID:     "plan-1",
	}
	if mutate != nil {
		mutate(sub)
	}
	s.Require().NoError(s.service.CreateSubscription(s.GetContext(), sub))
	return sub
}

func (s *SubscriptionServiceSuite) reload(id string) *subscription.Subscription {
	sub, err := s.service.GetSubscription(s.GetContext(), id)
	s.Require().NoError(err)
	return sub
}

func (s *SubscriptionServiceSuite) invoicesFor(subID string) []*invoice.Invoice {
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.InvoiceFilter{
		SubscriptionID: subID,
	})
	s.Require().NoError(err)
	return invoices
}

func (s *SubscriptionServiceSuite) TestCreateActivatesImmediately() {
	sub := s.createSubscription(nil)

	got := s.reload(sub.ID)
	s.Equal(types.SubscriptionStatusActive, got.SubscriptionStatus)
	s.Require().NotNil(got.StartedAt)
	s.True(got.StartedAt.Equal(s.clock))
	s.True(got.CurrentPeriodStart.Equal(s.clock))
	s.True(got.CurrentPeriodEnd.Equal(time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)))

	// pay-in-arrears activation does not invoice anything up front
	s.Empty(s.invoicesFor(sub.ID))
}

func (s *SubscriptionServiceSuite) TestCreateFutureStaysPending() {
	start := s.clock.AddDate(0, 0, 2)
	sub := s.createSubscription(func(sub *subscription.Subscription) {
		sub.SubscriptionAt = start
	})
	s.Equal(types.SubscriptionStatusPending, s.reload(sub.ID).SubscriptionStatus)

	// the sweep before the start date leaves it pending
	s.NoError(s.service.ActivatePending(s.GetContext(), s.clock.AddDate(0, 0, 1)))
	s.Equal(types.SubscriptionStatusPending, s.reload(sub.ID).SubscriptionStatus)

	s.NoError(s.service.ActivatePending(s.GetContext(), start))
	got := s.reload(sub.ID)
	s.Equal(types.SubscriptionStatusActive, got.SubscriptionStatus)
	s.True(got.CurrentPeriodStart.Equal(start))
}

func (s *SubscriptionServiceSuite) TestCreateDuplicateExternalID() {
	s.createSubscription(func(sub *subscription.Subscription) {
		sub.ExternalID = "ext-sub-dup"
	})

	err := s.service.CreateSubscription(s.GetContext(), &subscription.Subscription{
		ExternalID: "ext-sub-dup",
		CustomerID: "cust-1",
		PlanID:     "plan-1",
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestCalendarBillingSnapsPeriod() {
	sub := s.createSubscription(func(sub *subscription.Subscription) {
		sub.BillingTime = types.BillingTimeCalendar
	})

	got := s.reload(sub.ID)
	s.True(got.CurrentPeriodStart.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	s.True(got.CurrentPeriodEnd.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *SubscriptionServiceSuite) TestPayInAdvanceInvoicesOnActivation() {
	sub := s.createSubscription(func(sub *subscription.Subscription) {
		sub.PayInAdvance = true
	})

	invoices := s.invoicesFor(sub.ID)
	s.Require().Len(invoices, 1)
	s.Equal("10", invoices[0].Subtotal.String())
	s.Equal(types.InvoiceTypeSubscription, invoices[0].InvoiceType)
}

func (s *SubscriptionServiceSuite) TestTrialDefersFirstPeriod() {
	sub := s.createSubscription(func(sub *subscription.Subscription) {
		sub.PayInAdvance = true
		sub.TrialPeriodDays = 14
	})

	got := s.reload(sub.ID)
	trialEnd := s.clock.AddDate(0, 0, 14)
	s.True(got.CurrentPeriodStart.Equal(trialEnd))
	// nothing is billed while the trial runs
	s.Empty(s.invoicesFor(sub.ID))

	// once the trial lapses the flat fee is invoiced exactly once
	s.NoError(s.service.ProcessTrialExpiry(s.GetContext(), trialEnd.AddDate(0, 0, 1)))
	s.Len(s.invoicesFor(sub.ID), 1)

	s.NoError(s.service.ProcessTrialExpiry(s.GetContext(), trialEnd.AddDate(0, 0, 2)))
	s.Len(s.invoicesFor(sub.ID), 1)
}

func (s *SubscriptionServiceSuite) TestTrialDaysDefaultFromPlan() {
	p, err := s.GetStores().PlanRepo.Get(s.GetContext(), "plan-1")
	s.Require().NoError(err)
	p.TrialPeriodDays = 7
	s.Require().NoError(s.GetStores().PlanRepo.Update(s.GetContext(), p))

	sub := s.createSubscription(nil)
	got := s.reload(sub.ID)
	s.Equal(7, got.TrialPeriodDays)
	s.True(got.CurrentPeriodStart.Equal(s.clock.AddDate(0, 0, 7)))
}

func (s *SubscriptionServiceSuite) TestProcessDueRollsPeriod() {
	sub := s.createSubscription(nil)
	firstEnd := s.reload(sub.ID).CurrentPeriodEnd

	s.NoError(s.service.ProcessDueSubscriptions(s.GetContext(), firstEnd))

	got := s.reload(sub.ID)
	s.True(got.CurrentPeriodStart.Equal(firstEnd))
	s.True(got.CurrentPeriodEnd.Equal(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)))

	// the elapsed period was invoiced with the flat fee
	invoices := s.invoicesFor(sub.ID)
	s.Require().Len(invoices, 1)
	s.Equal("10", invoices[0].Subtotal.String())
	s.Require().NotNil(invoices[0].PeriodStart)
	s.True(invoices[0].PeriodStart.Equal(s.clock))

	// re-running the sweep for the same instant does not double-bill
	s.NoError(s.service.ProcessDueSubscriptions(s.GetContext(), firstEnd))
	s.Len(s.invoicesFor(sub.ID), 1)
}

func (s *SubscriptionServiceSuite) TestProcessDueSkipsPaused() {
	sub := s.createSubscription(nil)
	periodEnd := s.reload(sub.ID).CurrentPeriodEnd

	s.NoError(s.service.PauseSubscription(s.GetContext(), sub.ID))
	s.NoError(s.service.ProcessDueSubscriptions(s.GetContext(), periodEnd))
	s.Empty(s.invoicesFor(sub.ID))
	s.True(s.reload(sub.ID).CurrentPeriodEnd.Equal(periodEnd))

	// invoicing resumes with the subscription
	s.NoError(s.service.ResumeSubscription(s.GetContext(), sub.ID))
	s.NoError(s.service.ProcessDueSubscriptions(s.GetContext(), periodEnd))
	s.Len(s.invoicesFor(sub.ID), 1)
}

func (s *SubscriptionServiceSuite) TestCancelTerminatesAtPeriodEnd() {
	sub := s.createSubscription(nil)
	periodEnd := s.reload(sub.ID).CurrentPeriodEnd

	s.NoError(s.service.CancelSubscription(s.GetContext(), sub.ID))
	s.Equal(types.SubscriptionStatusCanceled, s.reload(sub.ID).SubscriptionStatus)

	// the period keeps running until its scheduled end
	s.NoError(s.service.ProcessDueSubscriptions(s.GetContext(), s.clock.AddDate(0, 0, 1)))
	s.Equal(types.SubscriptionStatusCanceled, s.reload(sub.ID).SubscriptionStatus)
	s.Empty(s.invoicesFor(sub.ID))

	// at period end the final invoice lands and the subscription terminates
	s.NoError(s.service.ProcessDueSubscriptions(s.GetContext(), periodEnd))
	got := s.reload(sub.ID)
	s.Equal(types.SubscriptionStatusTerminated, got.SubscriptionStatus)
	s.Require().NotNil(got.TerminatedAt)
	s.Len(s.invoicesFor(sub.ID), 1)
}

func (s *SubscriptionServiceSuite) TestCancelRequiresActive() {
	sub := s.createSubscription(func(sub *subscription.Subscription) {
		sub.SubscriptionAt = s.clock.AddDate(0, 0, 5)
	})

	err := s.service.CancelSubscription(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestTerminateInvoicesInFlightPeriod() {
	sub := s.createSubscription(nil)

	// half the period elapses before the hard stop
	s.clock = s.clock.AddDate(0, 0, 15)
	s.NoError(s.service.TerminateSubscription(s.GetContext(), sub.ID))

	got := s.reload(sub.ID)
	s.Equal(types.SubscriptionStatusTerminated, got.SubscriptionStatus)

	invoices := s.invoicesFor(sub.ID)
	s.Require().Len(invoices, 1)
	s.Require().NotNil(invoices[0].PeriodEnd)
	s.True(invoices[0].PeriodEnd.Equal(s.clock))
}

func (s *SubscriptionServiceSuite) TestTerminateSkipInvoiceAction() {
	sub := s.createSubscription(func(sub *subscription.Subscription) {
		sub.OnTerminationAction = types.OnTerminationSkipInvoice
	})

	s.NoError(s.service.TerminateSubscription(s.GetContext(), sub.ID))
	s.Equal(types.SubscriptionStatusTerminated, s.reload(sub.ID).SubscriptionStatus)
	s.Empty(s.invoicesFor(sub.ID))

	// a terminated subscription cannot be terminated again
	err := s.service.TerminateSubscription(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestAdvanceInvoiceOnRenewal() {
	sub := s.createSubscription(func(sub *subscription.Subscription) {
		sub.PayInAdvance = true
	})
	// the activation invoice covers the first period
	s.Require().Len(s.invoicesFor(sub.ID), 1)

	periodEnd := s.reload(sub.ID).CurrentPeriodEnd
	s.NoError(s.service.ProcessDueSubscriptions(s.GetContext(), periodEnd))

	// renewal adds the advance invoice for the next period; the elapsed
	// period had no usage charges so nothing else is billed
	invoices := s.invoicesFor(sub.ID)
	s.Require().Len(invoices, 2)
	s.Require().NotNil(invoices[1].PeriodStart)
	s.True(invoices[1].PeriodStart.Equal(periodEnd))
}
