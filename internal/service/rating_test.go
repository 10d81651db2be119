package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/coupon"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/events"
	"github.com/billix/billix/internal/domain/metric"
	"github.com/billix/billix/internal/domain/plan"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/domain/wallet"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// RatingPipelineSuite exercises the full metering-to-invoice path: events
// are ingested, aggregated, priced per charge and assembled into an
// invoice with coupons and wallet credits applied.
type RatingPipelineSuite struct {
	testutil.BaseServiceTestSuite
	invoices InvoiceService
	rating   RatingService
	customer *customer.Customer
	seq      int
}

func TestRatingPipeline(t *testing.T) {
	suite.Run(t, new(RatingPipelineSuite))
}

func (s *RatingPipelineSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newServiceParams(&s.BaseServiceTestSuite)
	s.invoices = NewInvoiceService(params)
	s.rating = NewRatingService(params)
	s.seq = 0

	err := s.GetStores().TenantRepo.Create(s.GetContext(), &tenant.Tenant{
		ID:            types.DefaultTenantID,
		Name:          "Acme",
		InvoicePrefix: "ACME",
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	})
	s.Require().NoError(err)

	s.customer = &customer.Customer{
		ID:         "cust-1",
		ExternalID: "C1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), s.customer))
}

// seedMeteredPlan wires a count metric, a monthly plan with the given flat
// fee and one standard charge at the given unit price
func (s *RatingPipelineSuite) seedMeteredPlan(flatFee, unitPrice string, mutate func(*plan.Plan, *charge.Charge)) *subscription.Subscription {
	m := &metric.Metric{
		ID:              "metric-1",
		Code:            "api_calls",
		Name:            "API calls",
		AggregationType: types.AggregationCount,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().MetricRepo.Create(s.GetContext(), m))

	p := &plan.Plan{
		ID:        "plan-1",
		Code:      "P1",
		Name:      "P1",
		Interval:  types.BILLING_PERIOD_MONTHLY,
		Amount:    decimal.RequireFromString(flatFee),
		Currency:  "usd",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}

	ch := &charge.Charge{
		ID:       "charge-1",
		PlanID:   p.ID,
		MetricID: m.ID,
		Model:    types.ChargeModelStandard,
		Properties: charge.Properties{
			UnitPrice: decimal.RequireFromString(unitPrice),
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	if mutate != nil {
		mutate(p, ch)
	}
	s.Require().NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))
	s.Require().NoError(s.GetStores().ChargeRepo.Create(s.GetContext(), ch))

	sub := &subscription.Subscription{
		ID:                 "sub-1",
		ExternalID:         "ext-sub-1",
		CustomerID:         s.customer.ID,
		PlanID:             p.ID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodStart: s.GetNow().AddDate(0, -1, 0),
		CurrentPeriodEnd:   s.GetNow(),
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *RatingPipelineSuite) ingestCalls(n int, properties map[string]interface{}) {
	at := s.GetNow().Add(-time.Hour)
	for i := 0; i < n; i++ {
		s.seq++
		event := events.NewEvent(
			types.DefaultTenantID,
			fmt.Sprintf("txn-%d", s.seq),
			s.customer.ExternalID,
			"api_calls",
			properties,
			at,
		)
		inserted, err := s.GetStores().EventRepo.InsertEvent(s.GetContext(), event)
		s.Require().NoError(err)
		s.Require().True(inserted)
	}
}

func (s *RatingPipelineSuite) TestUsageInvoiceEndToEnd() {
	sub := s.seedMeteredPlan("10", "0.01", nil)
	s.ingestCalls(1000, nil)

	inv, err := s.invoices.GenerateSubscriptionInvoice(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("20.0000", inv.Subtotal.StringFixed(4))
	s.Equal("0.0000", inv.TaxAmount.StringFixed(4))
	s.Equal("20.0000", inv.Total.StringFixed(4))

	// flat fee sorts before the usage charge
	s.Require().Len(inv.Fees, 2)
	s.Equal(types.FeeTypeSubscription, inv.Fees[0].FeeType)
	s.Equal("10", inv.Fees[0].Amount.String())
	s.Equal(types.FeeTypeCharge, inv.Fees[1].FeeType)
	s.Equal("1000", inv.Fees[1].Units.String())
	s.Equal("10", inv.Fees[1].Amount.String())

	// usage detail rides on the fee itself
	s.Equal(uint64(1000), inv.Fees[1].EventsCount)
	s.Equal("0.0100", inv.Fees[1].UnitAmount.StringFixed(4))
	s.Equal(types.PaymentStatusPending, inv.Fees[1].PaymentStatus)
	s.Equal("10.0000", inv.Fees[0].UnitAmount.StringFixed(4))
	s.Equal(types.PaymentStatusPending, inv.Fees[0].PaymentStatus)
}

func (s *RatingPipelineSuite) TestCouponReducesInvoiceTotal() {
	sub := s.seedMeteredPlan("10", "0.01", nil)
	s.ingestCalls(1000, nil)

	one := 1
	s.Require().NoError(s.GetStores().CouponRepo.Create(s.GetContext(), &coupon.Coupon{
		ID:         "coupon-1",
		Name:       "Welcome",
		Code:       "WELCOME5",
		CouponType: types.CouponTypeFixedAmount,
		Amount:     decimal.NewFromInt(5),
		Currency:   "usd",
		Frequency:  types.CouponFrequencyOnce,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}))
	applied := &coupon.AppliedCoupon{
		ID:                         "applied-1",
		CouponID:                   "coupon-1",
		CustomerID:                 s.customer.ID,
		AppliedCouponStatus:        types.AppliedCouponStatusActive,
		FrequencyDurationRemaining: &one,
		BaseModel:                  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().CouponRepo.CreateApplied(s.GetContext(), applied))

	inv, err := s.invoices.GenerateSubscriptionInvoice(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("20.0000", inv.Subtotal.StringFixed(4))
	s.Equal("5.0000", inv.CouponsAmount.StringFixed(4))
	s.Equal("15.0000", inv.Total.StringFixed(4))

	// a once coupon is spent by its first application
	reloaded, err := s.GetStores().CouponRepo.GetApplied(s.GetContext(), applied.ID)
	s.NoError(err)
	s.Equal(types.AppliedCouponStatusTerminated, reloaded.AppliedCouponStatus)
	s.Require().NotNil(reloaded.FrequencyDurationRemaining)
	s.Equal(0, *reloaded.FrequencyDurationRemaining)
}

func (s *RatingPipelineSuite) TestWalletCreditsDrawnIntoInvoice() {
	sub := s.seedMeteredPlan("10", "0.01", nil)
	s.ingestCalls(1000, nil)

	one := 1
	w := &wallet.Wallet{
		ID:             "wallet-1",
		CustomerID:     s.customer.ID,
		Name:           "Prepaid",
		Currency:       "usd",
		CreditsBalance: decimal.NewFromInt(7),
		RateAmount:     decimal.NewFromInt(1),
		WalletStatus:   types.WalletStatusActive,
		Priority:       &one,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().WalletRepo.CreateWallet(s.GetContext(), w))

	inv, err := s.invoices.GenerateSubscriptionInvoice(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("20.0000", inv.Subtotal.StringFixed(4))
	s.Equal("7.0000", inv.PrepaidCreditAmount.StringFixed(4))
	s.Equal("13.0000", inv.Total.StringFixed(4))

	reloaded, err := s.GetStores().WalletRepo.GetWalletByID(s.GetContext(), w.ID)
	s.NoError(err)
	s.Equal("0", reloaded.CreditsBalance.String())

	txns, err := s.GetStores().WalletRepo.ListTransactionsByReference(s.GetContext(), "invoice", inv.ID)
	s.NoError(err)
	s.Require().Len(txns, 1)
	s.Equal(types.TransactionTypeOutbound, txns[0].Type)
	s.Equal("7", txns[0].CreditAmount.String())
	s.Equal(types.TransactionStatusPending, txns[0].TransactionStatus)

	// the draw settles when the invoice finalizes
	_, err = s.invoices.FinalizeInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	txns, err = s.GetStores().WalletRepo.ListTransactionsByReference(s.GetContext(), "invoice", inv.ID)
	s.NoError(err)
	s.Equal(types.TransactionStatusSettled, txns[0].TransactionStatus)
}

func (s *RatingPipelineSuite) TestChargeFilterPricesSubsetOnly() {
	sub := s.seedMeteredPlan("0", "0.50", func(p *plan.Plan, ch *charge.Charge) {
		ch.Filters = []charge.Filter{
			{ID: "f-1", Values: []charge.FilterValue{{Key: "region", Value: "us"}}},
		}
	})
	s.ingestCalls(4, map[string]interface{}{"region": "us"})
	s.ingestCalls(6, map[string]interface{}{"region": "eu"})

	fees, err := s.rating.RateSubscription(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Require().Len(fees, 1)
	s.Equal("4", fees[0].Units.String())
	s.Equal("2", fees[0].Amount.String())
}

func (s *RatingPipelineSuite) TestCommitmentTrueUpFee() {
	sub := s.seedMeteredPlan("10", "0.01", func(p *plan.Plan, ch *charge.Charge) {
		p.Commitment = decimal.NewFromInt(50)
	})
	s.ingestCalls(1000, nil)

	fees, err := s.rating.RateSubscription(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Require().Len(fees, 3)

	commitment := fees[len(fees)-1]
	s.Equal(types.FeeTypeCommitment, commitment.FeeType)
	s.Equal("30", commitment.Amount.String())

	// the invoice subtotal lands exactly on the commitment
	inv, err := s.invoices.GenerateSubscriptionInvoice(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("50.0000", inv.Subtotal.StringFixed(4))
}

func (s *RatingPipelineSuite) TestRatingWithoutUsage() {
	sub := s.seedMeteredPlan("10", "0.01", nil)

	fees, err := s.rating.RateSubscription(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Require().Len(fees, 2)
	s.Equal("0", fees[1].Units.String())
	s.Equal("0", fees[1].Amount.String())
}
