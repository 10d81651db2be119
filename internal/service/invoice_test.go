package service

import (
	"fmt"
	"testing"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/coupon"
	"github.com/billix/billix/internal/domain/creditnote"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/plan"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/domain/tax"
	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/domain/wallet"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  InvoiceService
	customer *customer.Customer
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInvoiceService(newServiceParams(&s.BaseServiceTestSuite))

	err := s.GetStores().TenantRepo.Create(s.GetContext(), &tenant.Tenant{
		ID:            types.DefaultTenantID,
		Name:          "Acme",
		InvoicePrefix: "ACME",
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	})
	s.Require().NoError(err)

	s.customer = &customer.Customer{
		ID:         "cust-1",
		ExternalID: "ext-1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), s.customer))
}

func (s *InvoiceServiceSuite) generateOneOff(amounts ...string) *dto.CreateOneOffInvoiceRequest {
	items := make([]dto.OneOffLineItem, 0, len(amounts))
	for _, a := range amounts {
		items = append(items, dto.OneOffLineItem{
			Description: "Setup fee",
			Amount:      decimal.RequireFromString(a),
		})
	}
	return &dto.CreateOneOffInvoiceRequest{
		CustomerID: s.customer.ID,
		LineItems:  items,
	}
}

func (s *InvoiceServiceSuite) applyCoupon(c *coupon.Coupon, remaining *int) {
	s.Require().NoError(s.GetStores().CouponRepo.Create(s.GetContext(), c))
	s.Require().NoError(s.GetStores().CouponRepo.CreateApplied(s.GetContext(), &coupon.AppliedCoupon{
		ID:                         s.GetUUID(),
		CouponID:                   c.ID,
		CustomerID:                 s.customer.ID,
		AppliedCouponStatus:        types.AppliedCouponStatusActive,
		FrequencyDurationRemaining: remaining,
		BaseModel:                  types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *InvoiceServiceSuite) TestGenerateOneOff() {
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100", "50"))
	s.NoError(err)
	s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)
	s.Equal(types.InvoiceTypeOneOff, inv.InvoiceType)
	s.Equal("usd", inv.Currency)
	s.Equal("150", inv.Subtotal.String())
	s.Equal("150", inv.Total.String())
	s.Equal("ACME-000001", inv.InvoiceNumber)
	s.Len(inv.Fees, 2)
	s.NotNil(inv.IssuedAt)
	s.NotNil(inv.DueAt)

	// second invoice burns the next sequence number
	inv2, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("10"))
	s.NoError(err)
	s.Equal("ACME-000002", inv2.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestApplyCouponsInOrder() {
	fixed := &coupon.Coupon{
		ID:         "coupon-fixed",
		Name:       "Welcome",
		Code:       "WELCOME",
		CouponType: types.CouponTypeFixedAmount,
		Amount:     decimal.NewFromInt(40),
		Currency:   "usd",
		Frequency:  types.CouponFrequencyOnce,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.applyCoupon(fixed, nil)

	pct := &coupon.Coupon{
		ID:         "coupon-pct",
		Name:       "Loyalty",
		Code:       "LOYAL10",
		CouponType: types.CouponTypePercentage,
		Percentage: decimal.NewFromInt(10),
		Frequency:  types.CouponFrequencyForever,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.applyCoupon(pct, nil)

	// 100 - 40 fixed = 60, then 10% of the remaining 60 = 6
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("46", inv.CouponsAmount.String())
	s.Equal("54", inv.Total.String())

	// the once coupon terminated after producing a discount
	applied, err := s.GetStores().CouponRepo.ListActiveByCustomer(s.GetContext(), s.customer.ID)
	s.NoError(err)
	s.Len(applied, 1)
	s.Equal("coupon-pct", applied[0].CouponID)
}

func (s *InvoiceServiceSuite) TestRecurringCouponExhausts() {
	remaining := 2
	c := &coupon.Coupon{
		ID:                "coupon-rec",
		Name:              "Two invoices",
		Code:              "TWICE",
		CouponType:        types.CouponTypePercentage,
		Percentage:        decimal.NewFromInt(50),
		Frequency:         types.CouponFrequencyRecurring,
		FrequencyDuration: &remaining,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.applyCoupon(c, &remaining)

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("50", inv.CouponsAmount.String())

	inv, err = s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("50", inv.CouponsAmount.String())

	// exhausted after two uses
	inv, err = s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("0", inv.CouponsAmount.String())
}

func (s *InvoiceServiceSuite) TestFixedCouponCapsAtSubtotal() {
	fixed := &coupon.Coupon{
		ID:         "coupon-big",
		Name:       "Big",
		Code:       "BIG",
		CouponType: types.CouponTypeFixedAmount,
		Amount:     decimal.NewFromInt(500),
		Currency:   "usd",
		Frequency:  types.CouponFrequencyForever,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.applyCoupon(fixed, nil)

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("120"))
	s.NoError(err)
	s.Equal("120", inv.CouponsAmount.String())
	s.True(inv.Total.IsZero())
}

func (s *InvoiceServiceSuite) TestCurrencyMismatchedCouponSkipped() {
	fixed := &coupon.Coupon{
		ID:         "coupon-eur",
		Name:       "Euro only",
		Code:       "EUR",
		CouponType: types.CouponTypeFixedAmount,
		Amount:     decimal.NewFromInt(40),
		Currency:   "eur",
		Frequency:  types.CouponFrequencyForever,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.applyCoupon(fixed, nil)

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.True(inv.CouponsAmount.IsZero())
	s.Equal("100", inv.Total.String())
}

func (s *InvoiceServiceSuite) createWallet(id string, balance string, rate string) *wallet.Wallet {
	w := &wallet.Wallet{
		ID:             id,
		CustomerID:     s.customer.ID,
		Name:           "Prepaid",
		Currency:       "usd",
		CreditsBalance: decimal.RequireFromString(balance),
		RateAmount:     decimal.RequireFromString(rate),
		WalletStatus:   types.WalletStatusActive,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().WalletRepo.CreateWallet(s.GetContext(), w))
	return w
}

func (s *InvoiceServiceSuite) TestWalletDrawAndFinalize() {
	w := s.createWallet("wallet-1", "30", "1")

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("30", inv.PrepaidCreditAmount.String())
	s.Equal("70", inv.Total.String())

	// the draw is pending until the invoice finalizes
	txns, err := s.GetStores().WalletRepo.ListTransactionsByReference(s.GetContext(), "invoice", inv.ID)
	s.NoError(err)
	s.Require().Len(txns, 1)
	s.Equal(types.TransactionStatusPending, txns[0].TransactionStatus)
	s.Equal(types.TransactionTypeOutbound, txns[0].Type)

	updated, err := s.GetStores().WalletRepo.GetWalletByID(s.GetContext(), w.ID)
	s.NoError(err)
	s.True(updated.CreditsBalance.IsZero())

	_, err = s.service.FinalizeInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	txns, err = s.GetStores().WalletRepo.ListTransactionsByReference(s.GetContext(), "invoice", inv.ID)
	s.NoError(err)
	s.Require().Len(txns, 1)
	s.Equal(types.TransactionStatusSettled, txns[0].TransactionStatus)
}

func (s *InvoiceServiceSuite) TestWalletDrawReversedOnVoid() {
	w := s.createWallet("wallet-1", "30", "1")

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("30", inv.PrepaidCreditAmount.String())

	_, err = s.service.VoidInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	// balance restored by a compensating inbound transaction
	updated, err := s.GetStores().WalletRepo.GetWalletByID(s.GetContext(), w.ID)
	s.NoError(err)
	s.Equal("30", updated.CreditsBalance.String())

	txns, err := s.GetStores().WalletRepo.ListTransactionsByReference(s.GetContext(), "invoice", inv.ID)
	s.NoError(err)
	s.Require().Len(txns, 2)
}

func (s *InvoiceServiceSuite) TestWalletRateConversion() {
	// 1 credit buys 2 currency units, so 100 owed needs 50 credits
	s.createWallet("wallet-1", "80", "2")

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("100", inv.PrepaidCreditAmount.String())
	s.True(inv.Total.IsZero())

	updated, err := s.GetStores().WalletRepo.GetWalletByID(s.GetContext(), "wallet-1")
	s.NoError(err)
	s.Equal("30", updated.CreditsBalance.String())
}

func (s *InvoiceServiceSuite) TestProgressiveCreditsConsumedOldestFirst() {
	available := types.CreditStatusAvailable
	for i, amount := range []string{"20", "15"} {
		cn := &creditnote.CreditNote{
			ID:               s.GetUUID(),
			Number:           fmt.Sprintf("CN-%d", i+1),
			InvoiceID:        "inv-progressive",
			CustomerID:       s.customer.ID,
			CreditNoteType:   types.CreditNoteTypeOffset,
			CreditNoteStatus: types.CreditNoteStatusFinalized,
			CreditStatus:     &available,
			Currency:         "usd",
			TotalAmount:      decimal.RequireFromString(amount),
			BaseModel:        types.GetDefaultBaseModel(s.GetContext()),
		}
		s.Require().NoError(s.GetStores().CreditNoteRepo.CreateWithItems(s.GetContext(), cn))
	}

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("30"))
	s.NoError(err)
	s.Equal("30", inv.ProgressiveBillingCreditAmount.String())
	s.True(inv.Total.IsZero())

	// first offset fully consumed, second partially drawn
	offsets, err := s.GetStores().CreditNoteRepo.ListAvailableOffsets(s.GetContext(), s.customer.ID, "usd")
	s.NoError(err)
	s.Require().Len(offsets, 1)
	s.Equal("5", offsets[0].AvailableAmount().String())
}

func (s *InvoiceServiceSuite) seedTax(code string, rate int64, taxableType types.TaxableType, taxableID string) {
	t := &tax.Tax{
		ID:        "tax-" + code,
		Name:      code,
		Code:      code,
		Rate:      decimal.NewFromInt(rate),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().TaxRepo.Create(s.GetContext(), t))
	s.Require().NoError(s.GetStores().TaxRepo.CreateApplied(s.GetContext(), &tax.AppliedTax{
		ID:          s.GetUUID(),
		TaxID:       t.ID,
		TaxableType: taxableType,
		TaxableID:   taxableID,
		BaseModel:   types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *InvoiceServiceSuite) TestCustomerTaxApplied() {
	s.seedTax("VAT", 20, types.TaxableTypeCustomer, s.customer.ID)

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("20", inv.TaxAmount.String())
	s.Equal("120", inv.Total.String())
	s.Equal("20", inv.Fees[0].TaxAmount.String())
}

func (s *InvoiceServiceSuite) TestCustomerTaxOverridesTenantDefault() {
	s.seedTax("VAT", 20, types.TaxableTypeTenant, types.DefaultTenantID)
	s.seedTax("GST", 5, types.TaxableTypeCustomer, s.customer.ID)

	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("5", inv.TaxAmount.String())
}

func (s *InvoiceServiceSuite) TestTaxableBaseShrinksWithDiscounts() {
	s.seedTax("VAT", 20, types.TaxableTypeCustomer, s.customer.ID)
	pct := &coupon.Coupon{
		ID:         "coupon-half",
		Name:       "Half",
		Code:       "HALF",
		CouponType: types.CouponTypePercentage,
		Percentage: decimal.NewFromInt(50),
		Frequency:  types.CouponFrequencyForever,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.applyCoupon(pct, nil)

	// tax applies to the discounted base: 100 - 50 = 50, 20% = 10
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	s.Equal("10", inv.TaxAmount.String())
	s.Equal("60", inv.Total.String())
}

func (s *InvoiceServiceSuite) seedSubscription(flatFee string) *subscription.Subscription {
	p := &plan.Plan{
		ID:        "plan-1",
		Code:      "starter",
		Name:      "Starter",
		Interval:  types.BILLING_PERIOD_MONTHLY,
		Amount:    decimal.RequireFromString(flatFee),
		Currency:  "usd",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))

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

func (s *InvoiceServiceSuite) TestGenerateSubscriptionInvoiceIdempotent() {
	sub := s.seedSubscription("99")
	start, end := sub.CurrentPeriodStart, sub.CurrentPeriodEnd

	inv, err := s.service.GenerateSubscriptionInvoice(s.GetContext(), sub, start, end)
	s.NoError(err)
	s.Equal("99", inv.Subtotal.String())
	s.Require().NotNil(inv.SubscriptionID)
	s.Equal(sub.ID, *inv.SubscriptionID)

	// the same period returns the stored invoice instead of a new one
	again, err := s.service.GenerateSubscriptionInvoice(s.GetContext(), sub, start, end)
	s.NoError(err)
	s.Equal(inv.ID, again.ID)

	// a different period generates a fresh invoice
	next, err := s.service.GenerateSubscriptionInvoice(s.GetContext(), sub, end, end.AddDate(0, 1, 0))
	s.NoError(err)
	s.NotEqual(inv.ID, next.ID)
}

func (s *InvoiceServiceSuite) TestPreviewDoesNotMutate() {
	sub := s.seedSubscription("99")
	fixed := &coupon.Coupon{
		ID:         "coupon-fixed",
		Name:       "Welcome",
		Code:       "WELCOME",
		CouponType: types.CouponTypeFixedAmount,
		Amount:     decimal.NewFromInt(10),
		Currency:   "usd",
		Frequency:  types.CouponFrequencyOnce,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.applyCoupon(fixed, nil)
	s.createWallet("wallet-1", "20", "1")

	inv, err := s.service.PreviewSubscriptionInvoice(s.GetContext(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	s.NoError(err)
	s.Equal("ACME-PREVIEW", inv.InvoiceNumber)
	s.Equal("10", inv.CouponsAmount.String())
	s.Equal("20", inv.PrepaidCreditAmount.String())
	s.Equal("69", inv.Total.String())

	// nothing was persisted or consumed
	applied, err := s.GetStores().CouponRepo.ListActiveByCustomer(s.GetContext(), s.customer.ID)
	s.NoError(err)
	s.Len(applied, 1)

	w, err := s.GetStores().WalletRepo.GetWalletByID(s.GetContext(), "wallet-1")
	s.NoError(err)
	s.Equal("20", w.CreditsBalance.String())

	// the preview burned no sequence number
	persisted, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("10"))
	s.NoError(err)
	s.Equal("ACME-000001", persisted.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestPayRequiresFullSettlement() {
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)

	// draft invoices cannot be paid
	_, err = s.service.PayInvoice(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.FinalizeInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	_, err = s.service.PayInvoice(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-1", decimal.NewFromInt(60))
	s.NoError(err)

	// partial settlement still blocks the transition
	got, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusFinalized, got.InvoiceStatus)
	s.Equal("60", got.AmountPaid.String())

	// covering the rest flips the invoice to paid automatically
	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-2", decimal.NewFromInt(40))
	s.NoError(err)

	got, err = s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
	s.True(got.AmountDue().IsZero())
}

func (s *InvoiceServiceSuite) TestVoidBlockedAfterSettlement() {
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)

	_, err = s.service.FinalizeInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-1", decimal.NewFromInt(10))
	s.NoError(err)

	_, err = s.service.VoidInvoice(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestSettlementRequiresFinalizedInvoice() {
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)

	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-1", decimal.NewFromInt(10))
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestSettlementsCannotExceedTotal() {
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	_, err = s.service.FinalizeInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-1", decimal.NewFromInt(60))
	s.NoError(err)

	// 60 + 100 would overshoot the 100 total
	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-2", decimal.NewFromInt(100))
	s.Error(err)
	s.True(ierr.IsIntegrity(err))

	// the rejected settlement left no trace
	settlements, err := s.GetStores().InvoiceRepo.ListSettlements(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Len(settlements, 1)

	got, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal("60", got.AmountPaid.String())
	s.Equal(types.InvoiceStatusFinalized, got.InvoiceStatus)

	// an exact remainder still settles and pays the invoice
	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-3", decimal.NewFromInt(40))
	s.NoError(err)

	got, err = s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestSettlementAmountMustBePositive() {
	inv, err := s.service.GenerateOneOff(s.GetContext(), s.generateOneOff("100"))
	s.NoError(err)
	_, err = s.service.FinalizeInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-1", decimal.Zero)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	err = s.service.RecordSettlement(s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-2", decimal.NewFromInt(-5))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
