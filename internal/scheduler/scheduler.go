package scheduler

import (
	"context"
	"time"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/lease"
	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/webhook"
	"github.com/sourcegraph/conc/pool"
)

const webhookRetryBatchSize = 100

// task is one periodic job. periodKey buckets runs so the lease makes a
// double-run within the same bucket a no-op.
type task struct {
	name      types.ScheduledTask
	periodKey func(now time.Time) string
	run       func(ctx context.Context, now time.Time) error
}

// Scheduler drives the periodic billing tasks across all tenants. Every
// run is guarded by a (tenant, task, period) lease, so concurrent
// scheduler instances never duplicate work.
type Scheduler struct {
	cfg    *config.SchedulerConfig
	logger *logger.Logger

	leaseRepo  lease.Repository
	tenantRepo tenant.Repository

	subscriptionService service.SubscriptionService
	dunningService      service.DunningService
	alertService        service.AlertService
	webhookService      *webhook.WebhookService

	tasks  []task
	cancel context.CancelFunc
	done   chan struct{}
}

func New(
	cfg *config.Configuration,
	logger *logger.Logger,
	leaseRepo lease.Repository,
	tenantRepo tenant.Repository,
	subscriptionService service.SubscriptionService,
	dunningService service.DunningService,
	alertService service.AlertService,
	webhookService *webhook.WebhookService,
) *Scheduler {
	s := &Scheduler{
		cfg:                 &cfg.Scheduler,
		logger:              logger,
		leaseRepo:           leaseRepo,
		tenantRepo:          tenantRepo,
		subscriptionService: subscriptionService,
		dunningService:      dunningService,
		alertService:        alertService,
		webhookService:      webhookService,
		done:                make(chan struct{}),
	}

	hourly := func(now time.Time) string { return now.UTC().Format("2006-01-02T15") }
	perMinute := func(now time.Time) string { return now.UTC().Format("2006-01-02T15:04") }

	s.tasks = []task{
		{
			name:      types.TaskPeriodicInvoicing,
			periodKey: hourly,
			run:       s.runPeriodicInvoicing,
		},
		{
			name:      types.TaskTrialExpiry,
			periodKey: hourly,
			run:       s.runTrialExpiry,
		},
		{
			name:      types.TaskDunningTick,
			periodKey: hourly,
			run:       s.runDunningTick,
		},
		{
			name:      types.TaskWebhookRetry,
			periodKey: perMinute,
			run:       s.runWebhookRetry,
		},
	}
	return s
}

// Start runs the tick loop until Stop is called
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.Tick(ctx, time.Now().UTC())
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Tick(ctx, now.UTC())
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// Tick runs one scheduling pass over every tenant, fanning tenants out to
// the worker pool
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	tenants, err := s.tenantRepo.List(ctx)
	if err != nil {
		s.logger.Errorw("scheduler failed to list tenants", "error", err)
		return
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	p := pool.New().WithMaxGoroutines(workers)
	for _, t := range tenants {
		tenantID := t.ID
		p.Go(func() {
			s.tickTenant(ctx, tenantID, now)
		})
	}
	p.Wait()
}

func (s *Scheduler) tickTenant(ctx context.Context, tenantID string, now time.Time) {
	ctx = types.SetTenantID(ctx, tenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)

	for _, t := range s.tasks {
		// Tasks stay independent: one failing never blocks the rest
		if err := s.runLeased(ctx, t, now); err != nil {
			s.logger.Errorw("scheduled task failed",
				"error", err,
				"task", t.name,
				"tenant_id", tenantID,
			)
		}
		if ctx.Err() != nil {
			return
		}
	}

	// Usage alerts re-evaluate every tick; firing is idempotent on the
	// crossed-multiple count, so no lease is needed
	if err := s.evaluateUsageAlerts(ctx); err != nil {
		s.logger.Errorw("usage alert sweep failed",
			"error", err,
			"tenant_id", tenantID,
		)
	}
}

// runLeased acquires the task's period lease before running. A failed run
// releases the lease so the task can retry within the same period.
func (s *Scheduler) runLeased(ctx context.Context, t task, now time.Time) error {
	key := t.periodKey(now)
	acquired, err := s.leaseRepo.Acquire(ctx, t.name, key)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}

	if err := t.run(ctx, now); err != nil {
		if releaseErr := s.leaseRepo.Release(ctx, t.name, key); releaseErr != nil {
			s.logger.Errorw("failed to release lease",
				"error", releaseErr,
				"task", t.name,
				"period_key", key,
			)
		}
		return err
	}
	return nil
}

func (s *Scheduler) runPeriodicInvoicing(ctx context.Context, now time.Time) error {
	return s.subscriptionService.ProcessDueSubscriptions(ctx, now)
}

func (s *Scheduler) runTrialExpiry(ctx context.Context, now time.Time) error {
	if err := s.subscriptionService.ActivatePending(ctx, now); err != nil {
		return err
	}
	return s.subscriptionService.ProcessTrialExpiry(ctx, now)
}

func (s *Scheduler) runDunningTick(ctx context.Context, now time.Time) error {
	if err := s.dunningService.Tick(ctx, now); err != nil {
		return err
	}
	return s.dunningService.RetryTick(ctx, now)
}

func (s *Scheduler) runWebhookRetry(ctx context.Context, now time.Time) error {
	return s.webhookService.RetryDue(ctx, now, webhookRetryBatchSize)
}

func (s *Scheduler) evaluateUsageAlerts(ctx context.Context) error {
	filter := types.Filter{Limit: types.FilterMaxLimit}
	for {
		subs, _, err := s.subscriptionService.ListSubscriptions(ctx, filter)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if sub.SubscriptionStatus != types.SubscriptionStatusActive {
				continue
			}
			if err := s.alertService.EvaluateSubscription(ctx, sub.ID); err != nil {
				s.logger.Errorw("alert evaluation failed",
					"error", err,
					"subscription_id", sub.ID,
				)
			}
		}
		if len(subs) < filter.Limit {
			return nil
		}
		filter.Skip += filter.Limit
	}
}
