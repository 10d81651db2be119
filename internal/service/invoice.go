package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/coupon"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/domain/wallet"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/idempotency"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type InvoiceService interface {
	// GenerateSubscriptionInvoice assembles and persists the invoice for
	// one billing period. Idempotent on (subscription, period start);
	// returns nil without persisting when the period rated no fees.
	GenerateSubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) (*invoice.Invoice, error)

	// GenerateAdvanceInvoice bills the plan flat fee at period start for
	// pay-in-advance subscriptions. Idempotent on (subscription, period
	// start).
	GenerateAdvanceInvoice(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) (*invoice.Invoice, error)

	// GenerateOneOff assembles an invoice from caller-supplied line items
	GenerateOneOff(ctx context.Context, req *dto.CreateOneOffInvoiceRequest) (*invoice.Invoice, error)

	// PreviewSubscriptionInvoice runs the assembly pipeline without
	// persisting anything or mutating coupons and wallets
	PreviewSubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) (*invoice.Invoice, error)

	GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, filter *invoice.InvoiceFilter) (*types.ListResponse[*invoice.Invoice], error)

	FinalizeInvoice(ctx context.Context, id string) (*invoice.Invoice, error)
	PayInvoice(ctx context.Context, id string) (*invoice.Invoice, error)
	VoidInvoice(ctx context.Context, id string) (*invoice.Invoice, error)

	// RecordSettlement applies money to a finalized invoice and flips it
	// to paid once fully covered
	RecordSettlement(ctx context.Context, invoiceID string, sourceType types.SettlementSourceType, sourceID string, amount decimal.Decimal) error
}

type invoiceService struct {
	ServiceParams
	ratingService RatingService
	idempotency   *idempotency.Generator
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		ratingService: NewRatingService(params),
		idempotency:   idempotency.NewGenerator(),
	}
}

func (s *invoiceService) GenerateSubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) (*invoice.Invoice, error) {
	key := s.idempotency.GenerateKey(idempotency.ScopeSubscriptionInvoice, map[string]interface{}{
		"subscription_id": sub.ID,
		"period_start":    periodStart.UTC().Format(time.RFC3339),
	})
	if existing, err := s.InvoiceRepo.GetByIdempotencyKey(ctx, key); err == nil {
		return existing, nil
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	fees, err := s.ratingService.RateSubscription(ctx, sub, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	// Nothing billable this period, e.g. a pay-in-advance plan without
	// usage charges
	if len(fees) == 0 {
		return nil, nil
	}

	cust, err := s.CustomerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		subID := sub.ID
		inv, err = s.assemble(txCtx, cust, fees, &assembleOptions{
			InvoiceType:    types.InvoiceTypeSubscription,
			SubscriptionID: &subID,
			PeriodStart:    &periodStart,
			PeriodEnd:      &periodEnd,
			IdempotencyKey: &key,
			Persist:        true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventInvoiceCreated, "invoice", inv.ID)
	return inv, nil
}

func (s *invoiceService) GenerateAdvanceInvoice(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) (*invoice.Invoice, error) {
	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, nil
	}

	key := s.idempotency.GenerateKey(idempotency.ScopeAdvanceInvoice, map[string]interface{}{
		"subscription_id": sub.ID,
		"period_start":    periodStart.UTC().Format(time.RFC3339),
	})
	if existing, err := s.InvoiceRepo.GetByIdempotencyKey(ctx, key); err == nil {
		return existing, nil
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	cust, err := s.CustomerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}

	fees := []*invoice.Fee{{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FEE),
		FeeType:       types.FeeTypeSubscription,
		Description:   p.Name,
		Units:         decimal.NewFromInt(1),
		UnitAmount:    p.Amount,
		Amount:        p.Amount,
		PaymentStatus: types.PaymentStatusPending,
		Currency:      p.Currency,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}}

	var inv *invoice.Invoice
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		subID := sub.ID
		inv, err = s.assemble(txCtx, cust, fees, &assembleOptions{
			InvoiceType:    types.InvoiceTypeSubscription,
			SubscriptionID: &subID,
			PeriodStart:    &periodStart,
			PeriodEnd:      &periodEnd,
			IdempotencyKey: &key,
			Persist:        true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventInvoiceCreated, "invoice", inv.ID)
	return inv, nil
}

func (s *invoiceService) PreviewSubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, periodStart, periodEnd time.Time) (*invoice.Invoice, error) {
	fees, err := s.ratingService.RateSubscription(ctx, sub, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	cust, err := s.CustomerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}
	subID := sub.ID
	return s.assemble(ctx, cust, fees, &assembleOptions{
		InvoiceType:    types.InvoiceTypeSubscription,
		SubscriptionID: &subID,
		PeriodStart:    &periodStart,
		PeriodEnd:      &periodEnd,
		Persist:        false,
	})
}

func (s *invoiceService) GenerateOneOff(ctx context.Context, req *dto.CreateOneOffInvoiceRequest) (*invoice.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cust, err := s.CustomerRepo.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	fees := req.ToFees(ctx, cust.Currency)

	var inv *invoice.Invoice
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		inv, err = s.assemble(txCtx, cust, fees, &assembleOptions{
			InvoiceType: types.InvoiceTypeOneOff,
			Persist:     true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventInvoiceCreated, "invoice", inv.ID)
	return inv, nil
}

// assembleOptions parameterize the shared assembly pipeline
type assembleOptions struct {
	InvoiceType    types.InvoiceType
	SubscriptionID *string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	IdempotencyKey *string

	// Persist false runs the pipeline side-effect free for previews
	Persist bool
}

// assemble runs the invoice pipeline: fees, subtotal, coupons, wallet
// draws, progressive-billing credits, taxes, total, numbering
func (s *invoiceService) assemble(ctx context.Context, cust *customer.Customer, fees []*invoice.Fee, opts *assembleOptions) (*invoice.Invoice, error) {
	now := timeNow()

	sort.SliceStable(fees, func(i, j int) bool {
		return fees[i].FeeType.Order() < fees[j].FeeType.Order()
	})

	subtotal := decimal.Zero
	for _, f := range fees {
		subtotal = subtotal.Add(f.Amount)
	}

	inv := &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		CustomerID:     cust.ID,
		SubscriptionID: opts.SubscriptionID,
		InvoiceType:    opts.InvoiceType,
		InvoiceStatus:  types.InvoiceStatusDraft,
		Currency:       cust.Currency,
		Subtotal:       subtotal,
		PeriodStart:    opts.PeriodStart,
		PeriodEnd:      opts.PeriodEnd,
		IdempotencyKey: opts.IdempotencyKey,
		Fees:           fees,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	remaining := subtotal

	couponsAmount, err := s.applyCoupons(ctx, cust, remaining, inv.Currency, opts.Persist)
	if err != nil {
		return nil, err
	}
	inv.CouponsAmount = couponsAmount
	remaining = remaining.Sub(couponsAmount)

	prepaid, err := s.applyWalletDraws(ctx, cust, inv, remaining, now, opts.Persist)
	if err != nil {
		return nil, err
	}
	inv.PrepaidCreditAmount = prepaid
	remaining = remaining.Sub(prepaid)

	progressive, err := s.applyProgressiveCredits(ctx, cust, inv, remaining, opts.Persist)
	if err != nil {
		return nil, err
	}
	inv.ProgressiveBillingCreditAmount = progressive
	remaining = remaining.Sub(progressive)

	taxAmount, err := s.applyTaxes(ctx, cust, inv, subtotal)
	if err != nil {
		return nil, err
	}
	inv.TaxAmount = taxAmount

	total := inv.Subtotal.
		Sub(inv.CouponsAmount).
		Sub(inv.PrepaidCreditAmount).
		Sub(inv.ProgressiveBillingCreditAmount).
		Add(inv.TaxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	inv.Total = total
	inv.AmountPaid = decimal.Zero

	number, err := s.assignInvoiceNumber(ctx, opts.Persist)
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = number

	issuedAt := now.AddDate(0, 0, cust.InvoiceGracePeriod)
	dueAt := issuedAt.AddDate(0, 0, cust.NetPaymentTerm)
	inv.IssuedAt = &issuedAt
	inv.DueAt = &dueAt

	for _, f := range fees {
		f.InvoiceID = inv.ID
		f.Currency = inv.Currency
	}

	if opts.Persist {
		if err := s.InvoiceRepo.CreateWithLineItems(ctx, inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// applyCoupons walks active applied coupons in creation order. Fixed
// discounts cap at the remaining subtotal; percentage discounts round to
// four places. Mutations are skipped in preview mode.
func (s *invoiceService) applyCoupons(ctx context.Context, cust *customer.Customer, remaining decimal.Decimal, currency string, persist bool) (decimal.Decimal, error) {
	applied, err := s.CouponRepo.ListActiveByCustomer(ctx, cust.ID)
	if err != nil {
		return decimal.Zero, err
	}

	totalDiscount := decimal.Zero
	for _, ac := range applied {
		if !remaining.IsPositive() {
			break
		}
		c, err := s.CouponRepo.Get(ctx, ac.CouponID)
		if err != nil {
			return decimal.Zero, err
		}

		var discount decimal.Decimal
		switch c.CouponType {
		case types.CouponTypeFixedAmount:
			if c.Currency != "" && c.Currency != currency {
				continue
			}
			discount = decimal.Min(c.Amount, remaining)
		case types.CouponTypePercentage:
			discount = remaining.Mul(c.Percentage).Div(decimal.NewFromInt(100)).Round(4)
		default:
			continue
		}

		totalDiscount = totalDiscount.Add(discount)
		remaining = remaining.Sub(discount)

		if persist {
			if err := s.consumeCoupon(ctx, ac, c); err != nil {
				return decimal.Zero, err
			}
		}
	}
	return totalDiscount, nil
}

func (s *invoiceService) consumeCoupon(ctx context.Context, ac *coupon.AppliedCoupon, c *coupon.Coupon) error {
	if ac.FrequencyDurationRemaining != nil {
		rem := *ac.FrequencyDurationRemaining - 1
		if rem < 0 {
			rem = 0
		}
		ac.FrequencyDurationRemaining = &rem
	}

	terminate := false
	switch c.Frequency {
	case types.CouponFrequencyOnce:
		terminate = true
		if ac.FrequencyDurationRemaining == nil {
			zero := 0
			ac.FrequencyDurationRemaining = &zero
		}
	case types.CouponFrequencyRecurring:
		terminate = ac.FrequencyDurationRemaining != nil && *ac.FrequencyDurationRemaining <= 0
	}
	if terminate {
		now := time.Now().UTC()
		ac.AppliedCouponStatus = types.AppliedCouponStatusTerminated
		ac.TerminatedAt = &now
	}
	return s.CouponRepo.UpdateApplied(ctx, ac)
}

// applyWalletDraws draws prepaid credits wallet by wallet in priority order.
// Draw transactions stay pending until the invoice finalizes.
func (s *invoiceService) applyWalletDraws(ctx context.Context, cust *customer.Customer, inv *invoice.Invoice, remaining decimal.Decimal, now time.Time, persist bool) (decimal.Decimal, error) {
	if !remaining.IsPositive() {
		return decimal.Zero, nil
	}
	wallets, err := s.WalletRepo.GetWalletsByCustomer(ctx, cust.ID)
	if err != nil {
		return decimal.Zero, err
	}

	totalDrawn := decimal.Zero
	for _, w := range wallets {
		if !remaining.IsPositive() {
			break
		}
		if !w.IsActive(now) || w.Currency != inv.Currency {
			continue
		}
		if !w.CreditsBalance.IsPositive() || !w.RateAmount.IsPositive() {
			continue
		}

		creditsNeeded := remaining.Div(w.RateAmount)
		draw := decimal.Min(w.CreditsBalance, creditsNeeded)
		if !draw.IsPositive() {
			continue
		}
		amount := draw.Mul(w.RateAmount)

		if persist {
			balanceAfter := w.CreditsBalance.Sub(draw)
			txn := &wallet.Transaction{
				ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_TRANSACTION),
				WalletID:            w.ID,
				Type:                types.TransactionTypeOutbound,
				CreditAmount:        draw,
				CreditBalanceBefore: w.CreditsBalance,
				CreditBalanceAfter:  balanceAfter,
				TransactionStatus:   types.TransactionStatusPending,
				TransactionReason:   types.TransactionReasonInvoiced,
				Source:              types.TransactionSourceManual,
				ReferenceType:       "invoice",
				ReferenceID:         inv.ID,
				TransactionDate:     now,
				BaseModel:           types.GetDefaultBaseModel(ctx),
			}
			if err := s.WalletRepo.CreateTransaction(ctx, txn); err != nil {
				return decimal.Zero, err
			}
			if err := s.WalletRepo.UpdateWalletBalance(ctx, w.ID, balanceAfter); err != nil {
				return decimal.Zero, err
			}
		}

		totalDrawn = totalDrawn.Add(amount)
		remaining = remaining.Sub(amount)
	}
	return totalDrawn, nil
}

// applyProgressiveCredits consumes available OFFSET credit notes, oldest
// first, created by mid-period progressive billing
func (s *invoiceService) applyProgressiveCredits(ctx context.Context, cust *customer.Customer, inv *invoice.Invoice, remaining decimal.Decimal, persist bool) (decimal.Decimal, error) {
	if !remaining.IsPositive() {
		return decimal.Zero, nil
	}
	offsets, err := s.CreditNoteRepo.ListAvailableOffsets(ctx, cust.ID, inv.Currency)
	if err != nil {
		return decimal.Zero, err
	}

	totalCredit := decimal.Zero
	for _, cn := range offsets {
		if !remaining.IsPositive() {
			break
		}
		available := cn.AvailableAmount()
		if !available.IsPositive() {
			continue
		}
		consume := decimal.Min(available, remaining)

		if persist {
			cn.ConsumedAmount = cn.ConsumedAmount.Add(consume)
			if !cn.AvailableAmount().IsPositive() && cn.CreditStatus != nil {
				consumed := types.CreditStatusConsumed
				cn.CreditStatus = &consumed
			}
			if err := s.CreditNoteRepo.Update(ctx, cn); err != nil {
				return decimal.Zero, err
			}
		}

		totalCredit = totalCredit.Add(consume)
		remaining = remaining.Sub(consume)
	}
	return totalCredit, nil
}

// applyTaxes computes per-fee tax on the discounted share of each fee,
// rounding once per fee. Tax resolution precedence is fee, then customer,
// then tenant defaults.
func (s *invoiceService) applyTaxes(ctx context.Context, cust *customer.Customer, inv *invoice.Invoice, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if !subtotal.IsPositive() {
		return decimal.Zero, nil
	}

	// Discounts and credits shrink the taxable base proportionally
	// across fees
	taxableBase := subtotal.
		Sub(inv.CouponsAmount).
		Sub(inv.PrepaidCreditAmount).
		Sub(inv.ProgressiveBillingCreditAmount)
	if taxableBase.IsNegative() {
		taxableBase = decimal.Zero
	}
	factor := taxableBase.Div(subtotal)

	total := decimal.Zero
	for _, f := range inv.Fees {
		rate, err := s.resolveTaxRate(ctx, cust, f.ID)
		if err != nil {
			return decimal.Zero, err
		}
		if !rate.IsPositive() {
			f.TaxAmount = decimal.Zero
			continue
		}
		feeTax := f.Amount.Mul(factor).Mul(rate).Div(decimal.NewFromInt(100)).Round(4)
		f.TaxAmount = feeTax
		total = total.Add(feeTax)
	}
	return total, nil
}

// resolveTaxRate sums the rates bound to the fee, falling back to customer
// then tenant defaults
func (s *invoiceService) resolveTaxRate(ctx context.Context, cust *customer.Customer, feeID string) (decimal.Decimal, error) {
	scopes := []struct {
		taxableType types.TaxableType
		taxableID   string
	}{
		{types.TaxableTypeFee, feeID},
		{types.TaxableTypeCustomer, cust.ID},
		{types.TaxableTypeTenant, types.GetTenantID(ctx)},
	}

	for _, scope := range scopes {
		applied, err := s.TaxRepo.ListApplied(ctx, scope.taxableType, scope.taxableID)
		if err != nil {
			return decimal.Zero, err
		}
		if len(applied) == 0 {
			continue
		}
		rate := decimal.Zero
		for _, at := range applied {
			t, err := s.TaxRepo.Get(ctx, at.TaxID)
			if err != nil {
				return decimal.Zero, err
			}
			rate = rate.Add(t.Rate)
		}
		return rate, nil
	}
	return decimal.Zero, nil
}

// assignInvoiceNumber combines the tenant's invoice prefix with its
// monotone sequence. Previews get a placeholder without burning a number.
func (s *invoiceService) assignInvoiceNumber(ctx context.Context, persist bool) (string, error) {
	t, err := s.TenantRepo.Get(ctx, types.GetTenantID(ctx))
	if err != nil {
		return "", err
	}
	prefix := t.InvoicePrefix
	if prefix == "" {
		prefix = "INV"
	}
	if !persist {
		return fmt.Sprintf("%s-PREVIEW", prefix), nil
	}
	seq, err := s.TenantRepo.NextInvoiceSequence(ctx, t.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", prefix, seq), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.InvoiceRepo.Get(ctx, id)
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *invoice.InvoiceFilter) (*types.ListResponse[*invoice.Invoice], error) {
	if filter == nil {
		filter = &invoice.InvoiceFilter{}
	}
	if filter.Filter == nil {
		f := types.NewDefaultFilter()
		filter.Filter = &f
	}
	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := types.NewListResponse(invoices, total, filter.GetLimit(), filter.GetSkip())
	return &resp, nil
}

// FinalizeInvoice freezes the draft: line items become immutable, pending
// wallet draws settle, and the finalized webhook fires
func (s *invoiceService) FinalizeInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.Get(txCtx, id)
		if err != nil {
			return err
		}
		if err := inv.CanTransitionTo(types.InvoiceStatusFinalized); err != nil {
			return err
		}

		txns, err := s.WalletRepo.ListTransactionsByReference(txCtx, "invoice", inv.ID)
		if err != nil {
			return err
		}
		for _, txn := range txns {
			if txn.TransactionStatus != types.TransactionStatusPending {
				continue
			}
			if err := s.WalletRepo.UpdateTransactionStatus(txCtx, txn.ID, types.TransactionStatusSettled); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		inv.InvoiceStatus = types.InvoiceStatusFinalized
		inv.FinalizedAt = &now
		return s.InvoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		return nil, err
	}

	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventInvoiceFinalized, "invoice", inv.ID)
	return inv, nil
}

func (s *invoiceService) PayInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.Get(txCtx, id)
		if err != nil {
			return err
		}
		if err := inv.CanTransitionTo(types.InvoiceStatusPaid); err != nil {
			return err
		}

		settlements, err := s.InvoiceRepo.ListSettlements(txCtx, inv.ID)
		if err != nil {
			return err
		}
		settled := decimal.Zero
		for _, st := range settlements {
			settled = settled.Add(st.Amount)
		}
		if settled.LessThan(inv.Total) {
			return ierr.NewError("invoice is not fully settled").
				WithHintf("Settlements cover %s of %s", settled.StringFixed(4), inv.Total.StringFixed(4)).
				WithReportableDetails(map[string]interface{}{
					"invoice_id": inv.ID,
					"settled":    settled.StringFixed(4),
					"total":      inv.Total.StringFixed(4),
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		now := time.Now().UTC()
		inv.InvoiceStatus = types.InvoiceStatusPaid
		inv.PaidAt = &now
		inv.AmountPaid = settled
		return s.InvoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		return nil, err
	}

	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventInvoicePaid, "invoice", inv.ID)
	return inv, nil
}

// VoidInvoice cancels the invoice and reverses its pending wallet draws
// with compensating inbound transactions
func (s *invoiceService) VoidInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.Get(txCtx, id)
		if err != nil {
			return err
		}
		if err := inv.CanTransitionTo(types.InvoiceStatusVoided); err != nil {
			return err
		}

		if inv.InvoiceStatus == types.InvoiceStatusFinalized {
			settlements, err := s.InvoiceRepo.ListSettlements(txCtx, inv.ID)
			if err != nil {
				return err
			}
			if len(settlements) > 0 {
				return ierr.NewError("cannot void a settled invoice").
					WithHint("Invoices with settlements cannot be voided").
					Mark(ierr.ErrInvalidOperation)
			}
		}

		if err := s.reverseWalletDraws(txCtx, inv); err != nil {
			return err
		}

		now := time.Now().UTC()
		inv.InvoiceStatus = types.InvoiceStatusVoided
		inv.VoidedAt = &now
		return s.InvoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		return nil, err
	}

	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventInvoiceVoided, "invoice", inv.ID)
	return inv, nil
}

func (s *invoiceService) reverseWalletDraws(ctx context.Context, inv *invoice.Invoice) error {
	txns, err := s.WalletRepo.ListTransactionsByReference(ctx, "invoice", inv.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, txn := range txns {
		if txn.Type != types.TransactionTypeOutbound || txn.TransactionStatus == types.TransactionStatusFailed {
			continue
		}
		w, err := s.WalletRepo.GetWalletByID(ctx, txn.WalletID)
		if err != nil {
			return err
		}
		balanceAfter := w.CreditsBalance.Add(txn.CreditAmount)
		compensating := &wallet.Transaction{
			ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_TRANSACTION),
			WalletID:            w.ID,
			Type:                types.TransactionTypeInbound,
			CreditAmount:        txn.CreditAmount,
			CreditBalanceBefore: w.CreditsBalance,
			CreditBalanceAfter:  balanceAfter,
			TransactionStatus:   types.TransactionStatusSettled,
			TransactionReason:   types.TransactionReasonVoided,
			Source:              types.TransactionSourceManual,
			ReferenceType:       "invoice",
			ReferenceID:         inv.ID,
			TransactionDate:     now,
			BaseModel:           types.GetDefaultBaseModel(ctx),
		}
		if err := s.WalletRepo.CreateTransaction(ctx, compensating); err != nil {
			return err
		}
		if err := s.WalletRepo.UpdateWalletBalance(ctx, w.ID, balanceAfter); err != nil {
			return err
		}
		if txn.TransactionStatus == types.TransactionStatusPending {
			if err := s.WalletRepo.UpdateTransactionStatus(ctx, txn.ID, types.TransactionStatusFailed); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *invoiceService) RecordSettlement(ctx context.Context, invoiceID string, sourceType types.SettlementSourceType, sourceID string, amount decimal.Decimal) error {
	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		inv, err := s.InvoiceRepo.Get(txCtx, invoiceID)
		if err != nil {
			return err
		}
		if inv.InvoiceStatus != types.InvoiceStatusFinalized {
			return ierr.NewError("settlements require a finalized invoice").
				WithHintf("Invoice %s is %s", inv.ID, inv.InvoiceStatus).
				Mark(ierr.ErrInvalidOperation)
		}
		if !amount.IsPositive() {
			return ierr.NewError("settlement amount must be positive").
				WithHint("Settlement amount must be positive").
				Mark(ierr.ErrValidation)
		}

		settlements, err := s.InvoiceRepo.ListSettlements(txCtx, inv.ID)
		if err != nil {
			return err
		}
		settled := decimal.Zero
		for _, st := range settlements {
			settled = settled.Add(st.Amount)
		}
		// Settlements can never sum past the invoice total
		if settled.Add(amount).GreaterThan(inv.Total) {
			return ierr.NewError("settlement exceeds invoice total").
				WithHintf("Invoice %s has %s of %s settled", inv.ID, settled.StringFixed(4), inv.Total.StringFixed(4)).
				WithReportableDetails(map[string]interface{}{
					"invoice_id": inv.ID,
					"settled":    settled.StringFixed(4),
					"amount":     amount.StringFixed(4),
					"total":      inv.Total.StringFixed(4),
				}).
				Mark(ierr.ErrIntegrity)
		}

		settlement := &invoice.Settlement{
			ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SETTLEMENT),
			InvoiceID:  inv.ID,
			SourceType: sourceType,
			SourceID:   sourceID,
			Amount:     amount,
			Currency:   inv.Currency,
			BaseModel:  types.GetDefaultBaseModel(txCtx),
		}
		if err := s.InvoiceRepo.CreateSettlement(txCtx, settlement); err != nil {
			return err
		}

		settled = settled.Add(amount)
		inv.AmountPaid = settled
		if settled.GreaterThanOrEqual(inv.Total) {
			now := time.Now().UTC()
			inv.InvoiceStatus = types.InvoiceStatusPaid
			inv.PaidAt = &now
		}
		return s.InvoiceRepo.Update(txCtx, inv)
	})
}
