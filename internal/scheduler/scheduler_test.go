package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/domain/plan"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/domain/tenant"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/webhook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SchedulerSuite struct {
	testutil.BaseServiceTestSuite
	scheduler *Scheduler
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()

	params := service.ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		DB:                 s.GetDB(),
		Cache:              s.GetCache(),
		TenantRepo:         stores.TenantRepo,
		CustomerRepo:       stores.CustomerRepo,
		MetricRepo:         stores.MetricRepo,
		PlanRepo:           stores.PlanRepo,
		ChargeRepo:         stores.ChargeRepo,
		SubRepo:            stores.SubRepo,
		EventRepo:          stores.EventRepo,
		DailyUsageRepo:     stores.DailyUsageRepo,
		InvoiceRepo:        stores.InvoiceRepo,
		WalletRepo:         stores.WalletRepo,
		CouponRepo:         stores.CouponRepo,
		TaxRepo:            stores.TaxRepo,
		CreditNoteRepo:     stores.CreditNoteRepo,
		PaymentRequestRepo: stores.PaymentRequestRepo,
		DunningRepo:        stores.DunningRepo,
		AlertRepo:          stores.AlertRepo,
		WebhookRepo:        stores.WebhookRepo,
		AuthRepo:           stores.AuthRepo,
		LeaseRepo:          stores.LeaseRepo,
		EventPublisher:     s.GetPublisher(),
		WebhookPublisher:   s.GetWebhookPublisher(),
	}

	// Webhook delivery has its own handler tests; the scheduler suite runs
	// with the retry task short-circuited
	cfg := *s.GetConfig()
	cfg.Webhook.Enabled = false
	cfg.Scheduler = config.SchedulerConfig{
		Interval: time.Minute,
		Workers:  2,
	}

	webhookService := webhook.NewWebhookService(&cfg, s.GetWebhookPublisher(), nil, s.GetLogger())

	s.scheduler = New(
		&cfg,
		s.GetLogger(),
		stores.LeaseRepo,
		stores.TenantRepo,
		service.NewSubscriptionService(params),
		service.NewDunningService(params, nil),
		service.NewAlertService(params),
		webhookService,
	)
}

func (s *SchedulerSuite) seedDueSubscription() *subscription.Subscription {
	ctx := s.GetContext()
	s.Require().NoError(s.GetStores().TenantRepo.Create(ctx, &tenant.Tenant{
		ID:        types.DefaultTenantID,
		Name:      "Acme",
		BaseModel: types.GetDefaultBaseModel(ctx),
	}))
	s.Require().NoError(s.GetStores().CustomerRepo.Create(ctx, &customer.Customer{
		ID:         "cust-1",
		ExternalID: "C1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(ctx),
	}))
	s.Require().NoError(s.GetStores().PlanRepo.Create(ctx, &plan.Plan{
		ID:        "plan-1",
		Code:      "starter",
		Name:      "Starter",
		Interval:  types.BILLING_PERIOD_MONTHLY,
		Amount:    decimal.NewFromInt(10),
		Currency:  "usd",
		BaseModel: types.GetDefaultBaseModel(ctx),
	}))

	sub := &subscription.Subscription{
		ID:                 "sub-1",
		ExternalID:         "ext-sub-1",
		CustomerID:         "cust-1",
		PlanID:             "plan-1",
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodStart: s.GetNow().AddDate(0, -2, 0),
		CurrentPeriodEnd:   s.GetNow().AddDate(0, -1, 0),
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	s.Require().NoError(s.GetStores().SubRepo.Create(ctx, sub))
	return sub
}

func (s *SchedulerSuite) TestLeaseGuardsDuplicateRuns() {
	ctx := testutil.SetupContext()
	runs := 0
	t := task{
		name:      types.TaskDunningTick,
		periodKey: func(now time.Time) string { return now.UTC().Format("2006-01-02T15") },
		run: func(ctx context.Context, now time.Time) error {
			runs++
			return nil
		},
	}

	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	s.NoError(s.scheduler.runLeased(ctx, t, now))
	s.Equal(1, runs)

	// a second run inside the same period bucket is a no-op
	s.NoError(s.scheduler.runLeased(ctx, t, now.Add(30*time.Minute)))
	s.Equal(1, runs)

	s.NoError(s.scheduler.runLeased(ctx, t, now.Add(time.Hour)))
	s.Equal(2, runs)
}

func (s *SchedulerSuite) TestLeaseReleasedOnFailure() {
	ctx := testutil.SetupContext()
	runs := 0
	fail := true
	t := task{
		name:      types.TaskPeriodicInvoicing,
		periodKey: func(now time.Time) string { return now.UTC().Format("2006-01-02T15") },
		run: func(ctx context.Context, now time.Time) error {
			runs++
			if fail {
				return ierr.NewError("transient failure").Mark(ierr.ErrTransient)
			}
			return nil
		},
	}

	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	s.Error(s.scheduler.runLeased(ctx, t, now))
	s.Equal(1, runs)

	// the failed run released the lease, so the same period retries
	fail = false
	s.NoError(s.scheduler.runLeased(ctx, t, now))
	s.Equal(2, runs)

	s.NoError(s.scheduler.runLeased(ctx, t, now))
	s.Equal(2, runs)
}

func (s *SchedulerSuite) TestTickInvoicesDueSubscriptionOnce() {
	sub := s.seedDueSubscription()
	oldEnd := sub.CurrentPeriodEnd
	now := s.GetNow()

	s.scheduler.Tick(context.Background(), now)

	ctx := s.GetContext()
	invoices, err := s.GetStores().InvoiceRepo.List(ctx, &invoice.InvoiceFilter{CustomerID: "cust-1"})
	s.NoError(err)
	s.Require().Len(invoices, 1)
	s.Require().NotNil(invoices[0].PeriodStart)
	s.True(invoices[0].PeriodStart.Equal(sub.CurrentPeriodStart))

	// the billing period rolled forward exactly once
	rolled, err := s.GetStores().SubRepo.Get(ctx, sub.ID)
	s.NoError(err)
	s.True(rolled.CurrentPeriodStart.Equal(oldEnd))
	s.True(rolled.CurrentPeriodEnd.After(oldEnd))

	// a second tick in the same period bucket is absorbed by the lease
	s.scheduler.Tick(context.Background(), now)
	invoices, err = s.GetStores().InvoiceRepo.List(ctx, &invoice.InvoiceFilter{CustomerID: "cust-1"})
	s.NoError(err)
	s.Len(invoices, 1)

	again, err := s.GetStores().SubRepo.Get(ctx, sub.ID)
	s.NoError(err)
	s.True(again.CurrentPeriodEnd.Equal(rolled.CurrentPeriodEnd))
}

func (s *SchedulerSuite) TestTickNextPeriodInvoicesAgain() {
	s.seedDueSubscription()
	now := s.GetNow()

	s.scheduler.Tick(context.Background(), now)
	s.scheduler.Tick(context.Background(), now.Add(2*time.Hour))

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.InvoiceFilter{CustomerID: "cust-1"})
	s.NoError(err)
	// the rolled period ends within the tick window, so the next bucket
	// bills it
	s.Len(invoices, 2)
}

func (s *SchedulerSuite) TestTickWithoutTenantsIsQuiet() {
	s.scheduler.Tick(context.Background(), s.GetNow())

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.InvoiceFilter{})
	s.NoError(err)
	s.Empty(invoices)
}
