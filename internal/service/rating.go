package service

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type RatingService interface {
	// RateSubscription turns a subscription's billing period into invoice
	// fees: one per plan charge, the plan flat fee, and a commitment
	// true-up when the period stays under the plan's minimum
	RateSubscription(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) ([]*invoice.Fee, error)
}

type ratingService struct {
	ServiceParams
	usageService UsageService
}

func NewRatingService(params ServiceParams) RatingService {
	return &ratingService{
		ServiceParams: params,
		usageService:  NewUsageService(params),
	}
}

func (s *ratingService) RateSubscription(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) ([]*invoice.Fee, error) {
	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	fees := make([]*invoice.Fee, 0, 4)

	// Pay-in-advance subscriptions had the flat fee billed at period start
	if p.Amount.IsPositive() && !sub.PayInAdvance {
		fees = append(fees, &invoice.Fee{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FEE),
			FeeType:       types.FeeTypeSubscription,
			Description:   p.Name,
			Units:         decimal.NewFromInt(1),
			UnitAmount:    p.Amount,
			Amount:        p.Amount,
			PaymentStatus: types.PaymentStatusPending,
			Currency:      p.Currency,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		})
	}

	charges, err := s.ChargeRepo.GetByPlan(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	for _, ch := range charges {
		fee, err := s.rateCharge(ctx, sub, ch, p.Currency, periodStart, periodEnd)
		if err != nil {
			return nil, err
		}
		fees = append(fees, fee)
	}

	if p.Commitment.IsPositive() {
		total := lo.Reduce(fees, func(acc decimal.Decimal, f *invoice.Fee, _ int) decimal.Decimal {
			return acc.Add(f.Amount)
		}, decimal.Zero)
		if total.LessThan(p.Commitment) {
			trueUp := p.Commitment.Sub(total)
			fees = append(fees, &invoice.Fee{
				ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FEE),
				FeeType:       types.FeeTypeCommitment,
				Description:   "Minimum commitment true-up",
				Units:         decimal.NewFromInt(1),
				UnitAmount:    trueUp,
				Amount:        trueUp,
				PaymentStatus: types.PaymentStatusPending,
				Currency:      p.Currency,
				BaseModel:     types.GetDefaultBaseModel(ctx),
			})
		}
	}

	return fees, nil
}

func (s *ratingService) rateCharge(ctx context.Context, sub *subscription.Subscription, ch *charge.Charge, currency string, periodStart, periodEnd time.Time) (*invoice.Fee, error) {
	m, err := s.MetricRepo.Get(ctx, ch.MetricID)
	if err != nil {
		return nil, err
	}

	usage, err := s.usageService.GetChargeUsage(ctx, sub, ch, m, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	props := ch.Properties
	// A single filter may override the charge-level model parameters
	if len(ch.Filters) == 1 && ch.Filters[0].Properties != nil {
		props = *ch.Filters[0].Properties
	}

	input := CalculationInput{
		Units:      usage.Value,
		EventCount: usage.EventsCount,
	}
	switch ch.Model {
	case types.ChargeModelPercentage, types.ChargeModelGraduatedPercentage:
		// The metric's sum aggregation carries the transacted total
		input.TotalAmount = usage.Value
	}

	amount, err := CalculateCharge(ch.Model, props, input)
	if err != nil {
		return nil, err
	}

	description := ch.InvoiceDisplayName
	if description == "" {
		description = m.Name
	}

	// Effective per-unit price; tiered models make this an average
	unitAmount := decimal.Zero
	if usage.Value.IsPositive() {
		unitAmount = amount.Div(usage.Value)
	}

	chargeID := ch.ID
	metricID := m.ID
	return &invoice.Fee{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FEE),
		FeeType:       types.FeeTypeCharge,
		ChargeID:      &chargeID,
		MetricID:      &metricID,
		Description:   description,
		Units:         usage.Value,
		EventsCount:   usage.EventsCount,
		UnitAmount:    unitAmount,
		Amount:        amount,
		PaymentStatus: types.PaymentStatusPending,
		Currency:      currency,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}, nil
}
