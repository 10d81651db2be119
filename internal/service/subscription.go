package service

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/subscription"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type SubscriptionService interface {
	CreateSubscription(ctx context.Context, sub *subscription.Subscription) error
	GetSubscription(ctx context.Context, id string) (*subscription.Subscription, error)
	ListSubscriptions(ctx context.Context, filter types.Filter) ([]*subscription.Subscription, int, error)

	ActivateSubscription(ctx context.Context, id string) error
	PauseSubscription(ctx context.Context, id string) error
	ResumeSubscription(ctx context.Context, id string) error

	// CancelSubscription schedules termination at the end of the current
	// billing period
	CancelSubscription(ctx context.Context, id string) error

	// TerminateSubscription ends the subscription immediately, invoicing
	// the in-flight period per on_termination_action
	TerminateSubscription(ctx context.Context, id string) error

	// ProcessDueSubscriptions invoices every subscription whose current
	// period has ended and rolls the period forward
	ProcessDueSubscriptions(ctx context.Context, now time.Time) error

	// ActivatePending flips pending subscriptions whose start has passed
	ActivatePending(ctx context.Context, now time.Time) error

	// ProcessTrialExpiry issues the pay-in-advance flat fee invoice for
	// subscriptions whose trial has ended. Safe to re-run.
	ProcessTrialExpiry(ctx context.Context, now time.Time) error
}

type subscriptionService struct {
	ServiceParams
	invoiceService InvoiceService
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams:  params,
		invoiceService: NewInvoiceService(params),
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if sub.BillingTime == "" {
		sub.BillingTime = types.BillingTimeAnniversary
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	if _, err := s.CustomerRepo.Get(ctx, sub.CustomerID); err != nil {
		return err
	}
	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	if existing, err := s.SubRepo.GetByExternalID(ctx, sub.ExternalID); err == nil && existing != nil {
		return ierr.NewError("subscription external_id already exists").
			WithHintf("A subscription with external ID %s already exists", sub.ExternalID).
			Mark(ierr.ErrAlreadyExists)
	} else if err != nil && !ierr.IsNotFound(err) {
		return err
	}

	if sub.ID == "" {
		sub.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION)
	}
	if sub.TrialPeriodDays == 0 {
		sub.TrialPeriodDays = p.TrialPeriodDays
	}
	sub.SubscriptionStatus = types.SubscriptionStatusPending
	if sub.SubscriptionAt.IsZero() {
		sub.SubscriptionAt = timeNow()
	}
	if sub.TenantID == "" {
		sub.BaseModel = types.GetDefaultBaseModel(ctx)
	}

	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return err
	}

	if !sub.SubscriptionAt.After(timeNow()) {
		return s.activate(ctx, sub, timeNow())
	}
	return nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*subscription.Subscription, error) {
	return s.SubRepo.Get(ctx, id)
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, filter types.Filter) ([]*subscription.Subscription, int, error) {
	return s.SubRepo.List(ctx, filter)
}

func (s *subscriptionService) ActivateSubscription(ctx context.Context, id string) error {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusPending {
		return ierr.NewError("subscription is not pending").
			WithHintf("Subscription %s is %s", sub.ID, sub.SubscriptionStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	return s.activate(ctx, sub, timeNow())
}

// activate stamps the start, anchors the first billing period after any
// trial, and bills pay-in-advance flat fees
func (s *subscriptionService) activate(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	start := now
	sub.StartedAt = &start
	sub.SubscriptionStatus = types.SubscriptionStatusActive

	anchor := start
	if sub.TrialPeriodDays > 0 {
		anchor = start.AddDate(0, 0, sub.TrialPeriodDays)
	}
	if sub.BillingTime == types.BillingTimeCalendar {
		anchor, err = types.CalendarPeriodStart(anchor, p.Interval)
		if err != nil {
			return err
		}
	}
	periodEnd, err := types.NextBillingDate(anchor, p.Interval)
	if err != nil {
		return err
	}
	sub.CurrentPeriodStart = anchor
	sub.CurrentPeriodEnd = periodEnd

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	s.Logger.Infow("activated subscription",
		"subscription_id", sub.ID,
		"period_start", anchor,
		"period_end", periodEnd,
	)
	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventSubscriptionActivated, "subscription", sub.ID)

	// Trial-free pay-in-advance subscriptions owe the flat fee right away
	if sub.PayInAdvance && sub.TrialPeriodDays == 0 {
		if _, err := s.invoiceService.GenerateAdvanceInvoice(ctx, sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd); err != nil {
			return err
		}
	}
	return nil
}

func (s *subscriptionService) PauseSubscription(ctx context.Context, id string) error {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return ierr.NewError("only active subscriptions can be paused").
			WithHintf("Subscription %s is %s", sub.ID, sub.SubscriptionStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	if sub.IsPaused() {
		return nil
	}
	now := timeNow()
	sub.PausedAt = &now
	return s.SubRepo.Update(ctx, sub)
}

func (s *subscriptionService) ResumeSubscription(ctx context.Context, id string) error {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !sub.IsPaused() {
		return nil
	}
	now := timeNow()
	sub.ResumedAt = &now
	return s.SubRepo.Update(ctx, sub)
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, id string) error {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return ierr.NewError("only active subscriptions can be canceled").
			WithHintf("Subscription %s is %s", sub.ID, sub.SubscriptionStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	now := timeNow()
	sub.CanceledAt = &now
	sub.SubscriptionStatus = types.SubscriptionStatusCanceled
	return s.SubRepo.Update(ctx, sub)
}

func (s *subscriptionService) TerminateSubscription(ctx context.Context, id string) error {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch sub.SubscriptionStatus {
	case types.SubscriptionStatusActive, types.SubscriptionStatusCanceled:
	default:
		return ierr.NewError("subscription cannot be terminated").
			WithHintf("Subscription %s is %s", sub.ID, sub.SubscriptionStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	now := timeNow()
	if sub.OnTerminationAction != types.OnTerminationSkipInvoice && !sub.CurrentPeriodStart.IsZero() {
		if _, err := s.invoiceService.GenerateSubscriptionInvoice(ctx, sub, sub.CurrentPeriodStart, now); err != nil {
			return err
		}
	}

	sub.SubscriptionStatus = types.SubscriptionStatusTerminated
	sub.TerminatedAt = &now
	return s.SubRepo.Update(ctx, sub)
}

func (s *subscriptionService) ProcessDueSubscriptions(ctx context.Context, now time.Time) error {
	due, err := s.SubRepo.ListDueForInvoicing(ctx, now)
	if err != nil {
		return err
	}
	for _, sub := range due {
		if sub.IsPaused() {
			continue
		}
		if err := s.rollPeriod(ctx, sub, now); err != nil {
			s.Logger.Errorw("periodic invoicing failed",
				"error", err,
				"subscription_id", sub.ID,
			)
		}
	}
	return nil
}

func (s *subscriptionService) rollPeriod(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	if _, err := s.invoiceService.GenerateSubscriptionInvoice(ctx, sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd); err != nil {
		return err
	}

	// A canceled subscription terminates instead of renewing
	if sub.CanceledAt != nil {
		sub.SubscriptionStatus = types.SubscriptionStatusTerminated
		sub.TerminatedAt = &now
		return s.SubRepo.Update(ctx, sub)
	}

	nextEnd, err := types.NextBillingDate(sub.CurrentPeriodEnd, p.Interval)
	if err != nil {
		return err
	}
	sub.CurrentPeriodStart = sub.CurrentPeriodEnd
	sub.CurrentPeriodEnd = nextEnd
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	if sub.PayInAdvance {
		if _, err := s.invoiceService.GenerateAdvanceInvoice(ctx, sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd); err != nil {
			return err
		}
	}
	return nil
}

func (s *subscriptionService) ActivatePending(ctx context.Context, now time.Time) error {
	pending, err := s.SubRepo.ListPendingActivation(ctx, now)
	if err != nil {
		return err
	}
	for _, sub := range pending {
		if err := s.activate(ctx, sub, now); err != nil {
			s.Logger.Errorw("subscription activation failed",
				"error", err,
				"subscription_id", sub.ID,
			)
		}
	}
	return nil
}

func (s *subscriptionService) ProcessTrialExpiry(ctx context.Context, now time.Time) error {
	filter := types.Filter{Limit: types.FilterMaxLimit}
	for {
		subs, _, err := s.SubRepo.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if sub.SubscriptionStatus != types.SubscriptionStatusActive ||
				sub.TrialPeriodDays <= 0 || sub.InTrial(now) || !sub.PayInAdvance {
				continue
			}
			// Only the period right after the trial needs the initial
			// advance invoice; idempotency absorbs re-runs
			if now.Before(sub.CurrentPeriodStart) || !now.Before(sub.CurrentPeriodEnd) {
				continue
			}
			if _, err := s.invoiceService.GenerateAdvanceInvoice(ctx, sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd); err != nil {
				s.Logger.Errorw("trial expiry invoicing failed",
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
