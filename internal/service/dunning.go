package service

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/dunning"
	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/domain/paymentrequest"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// PaymentProvider is the narrow adapter to an external collection backend.
// Implementations charge the full payment request amount or fail.
type PaymentProvider interface {
	Charge(ctx context.Context, pr *paymentrequest.PaymentRequest) error
}

type DunningService interface {
	CreateCampaign(ctx context.Context, c *dunning.Campaign) error
	GetCampaign(ctx context.Context, id string) (*dunning.Campaign, error)

	GetPaymentRequest(ctx context.Context, id string) (*paymentrequest.PaymentRequest, error)

	// Tick scans customers for overdue balances over their campaign
	// thresholds and opens payment requests
	Tick(ctx context.Context, now time.Time) error

	// RetryTick drives pending payment requests whose next attempt is due
	RetryTick(ctx context.Context, now time.Time) error

	// ProcessAttempt runs one collection attempt against the provider
	ProcessAttempt(ctx context.Context, prID string, now time.Time) error
}

type dunningService struct {
	ServiceParams
	invoiceService InvoiceService
	provider       PaymentProvider
}

func NewDunningService(params ServiceParams, provider PaymentProvider) DunningService {
	return &dunningService{
		ServiceParams:  params,
		invoiceService: NewInvoiceService(params),
		provider:       provider,
	}
}

func (s *dunningService) CreateCampaign(ctx context.Context, c *dunning.Campaign) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DUNNING_CAMPAIGN)
	}
	for _, t := range c.Thresholds {
		if t.ID == "" {
			t.ID = types.GenerateUUID()
		}
		t.CampaignID = c.ID
	}
	if c.TenantID == "" {
		c.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	return s.DunningRepo.CreateWithThresholds(ctx, c)
}

func (s *dunningService) GetCampaign(ctx context.Context, id string) (*dunning.Campaign, error) {
	return s.DunningRepo.Get(ctx, id)
}

func (s *dunningService) GetPaymentRequest(ctx context.Context, id string) (*paymentrequest.PaymentRequest, error) {
	return s.PaymentRequestRepo.Get(ctx, id)
}

func (s *dunningService) Tick(ctx context.Context, now time.Time) error {
	filter := types.Filter{Limit: types.FilterMaxLimit}
	for {
		customers, _, err := s.CustomerRepo.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, cust := range customers {
			if err := s.evaluateCustomer(ctx, cust, now); err != nil {
				// One customer's failure never stalls the sweep
				s.Logger.Errorw("dunning evaluation failed",
					"error", err,
					"customer_id", cust.ID,
				)
			}
		}
		if len(customers) < filter.Limit {
			return nil
		}
		filter.Skip += filter.Limit
	}
}

func (s *dunningService) evaluateCustomer(ctx context.Context, cust *customer.Customer, now time.Time) error {
	campaign, err := s.resolveCampaign(ctx, cust)
	if err != nil || campaign == nil {
		return err
	}

	outstanding, err := s.InvoiceRepo.ListOutstanding(ctx, cust.ID, now)
	if err != nil {
		return err
	}
	if len(outstanding) == 0 {
		return nil
	}

	// Invoices already covered by a non-failed payment request are
	// excluded from new requests
	covered, err := s.coveredInvoiceIDs(ctx, cust.ID)
	if err != nil {
		return err
	}

	byCurrency := make(map[string][]*invoice.Invoice)
	for _, inv := range outstanding {
		if _, ok := covered[inv.ID]; ok {
			continue
		}
		byCurrency[inv.Currency] = append(byCurrency[inv.Currency], inv)
	}

	for currency, invoices := range byCurrency {
		threshold, ok := campaign.ThresholdFor(currency)
		if !ok {
			continue
		}
		total := decimal.Zero
		ids := make([]string, 0, len(invoices))
		for _, inv := range invoices {
			total = total.Add(inv.AmountDue())
			ids = append(ids, inv.ID)
		}
		if total.LessThan(threshold.Amount) {
			continue
		}

		pr := &paymentrequest.PaymentRequest{
			ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_REQUEST),
			CustomerID:        cust.ID,
			DunningCampaignID: campaign.ID,
			Currency:          currency,
			Amount:            total,
			PaymentStatus:     types.PaymentRequestStatusPending,
			InvoiceIDs:        ids,
			BaseModel:         types.GetDefaultBaseModel(ctx),
		}
		if err := s.PaymentRequestRepo.Create(ctx, pr); err != nil {
			return err
		}

		s.Logger.Infow("created payment request",
			"payment_request_id", pr.ID,
			"customer_id", cust.ID,
			"currency", currency,
			"amount", total.StringFixed(4),
			"invoices", len(ids),
		)
		publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventPaymentRequestCreated, "payment_request", pr.ID)
	}
	return nil
}

func (s *dunningService) resolveCampaign(ctx context.Context, cust *customer.Customer) (*dunning.Campaign, error) {
	if cust.DunningCampaignID != "" {
		return s.DunningRepo.Get(ctx, cust.DunningCampaignID)
	}
	campaign, err := s.DunningRepo.GetOrgDefault(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return campaign, nil
}

func (s *dunningService) coveredInvoiceIDs(ctx context.Context, customerID string) (map[string]struct{}, error) {
	open, err := s.PaymentRequestRepo.ListOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	covered := make(map[string]struct{})
	for _, pr := range open {
		for _, id := range pr.InvoiceIDs {
			covered[id] = struct{}{}
		}
	}
	return covered, nil
}

func (s *dunningService) RetryTick(ctx context.Context, now time.Time) error {
	due, err := s.PaymentRequestRepo.ListDueForRetry(ctx, now)
	if err != nil {
		return err
	}
	for _, pr := range due {
		if err := s.ProcessAttempt(ctx, pr.ID, now); err != nil {
			s.Logger.Errorw("payment request attempt failed",
				"error", err,
				"payment_request_id", pr.ID,
			)
		}
	}
	return nil
}

func (s *dunningService) ProcessAttempt(ctx context.Context, prID string, now time.Time) error {
	pr, err := s.PaymentRequestRepo.Get(ctx, prID)
	if err != nil {
		return err
	}
	if pr.PaymentStatus != types.PaymentRequestStatusPending {
		return ierr.NewError("payment request is not pending").
			WithHintf("Payment request %s is %s", pr.ID, pr.PaymentStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	if s.provider == nil {
		return ierr.NewError("no payment provider configured").
			WithHint("Collection attempts require a payment provider").
			Mark(ierr.ErrInvalidOperation)
	}

	campaign, err := s.DunningRepo.Get(ctx, pr.DunningCampaignID)
	if err != nil {
		return err
	}

	if chargeErr := s.provider.Charge(ctx, pr); chargeErr != nil {
		return s.recordFailure(ctx, pr, campaign, now, chargeErr)
	}
	return s.recordSuccess(ctx, pr, now)
}

func (s *dunningService) recordFailure(ctx context.Context, pr *paymentrequest.PaymentRequest, campaign *dunning.Campaign, now time.Time, cause error) error {
	pr.AttemptCount++
	pr.LastAttemptAt = &now

	if pr.AttemptCount >= campaign.MaxAttempts {
		pr.PaymentStatus = types.PaymentRequestStatusFailed
		pr.NextAttemptAt = nil
	} else {
		next := now.AddDate(0, 0, campaign.DaysBetweenAttempts)
		pr.NextAttemptAt = &next
	}
	if err := s.PaymentRequestRepo.Update(ctx, pr); err != nil {
		return err
	}

	s.Logger.Warnw("payment request attempt failed",
		"payment_request_id", pr.ID,
		"attempt", pr.AttemptCount,
		"max_attempts", campaign.MaxAttempts,
		"status", pr.PaymentStatus,
		"cause", cause,
	)
	if pr.PaymentStatus == types.PaymentRequestStatusFailed {
		publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventPaymentRequestFailed, "payment_request", pr.ID)
	}
	return nil
}

// recordSuccess writes the payment row and settles each covered invoice up
// to its due amount
func (s *dunningService) recordSuccess(ctx context.Context, pr *paymentrequest.PaymentRequest, now time.Time) error {
	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		payment := &paymentrequest.Payment{
			ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			PaymentRequestID: pr.ID,
			CustomerID:       pr.CustomerID,
			Currency:         pr.Currency,
			Amount:           pr.Amount,
			SucceededAt:      now,
			BaseModel:        types.GetDefaultBaseModel(txCtx),
		}
		if err := s.PaymentRequestRepo.CreatePayment(txCtx, payment); err != nil {
			return err
		}

		for _, invoiceID := range pr.InvoiceIDs {
			inv, err := s.InvoiceRepo.Get(txCtx, invoiceID)
			if err != nil {
				return err
			}
			due := inv.AmountDue()
			if !due.IsPositive() {
				continue
			}
			if err := s.invoiceService.RecordSettlement(txCtx, invoiceID, types.SettlementSourcePayment, payment.ID, due); err != nil {
				return err
			}
		}

		pr.PaymentStatus = types.PaymentRequestStatusSucceeded
		pr.AttemptCount++
		pr.LastAttemptAt = &now
		pr.NextAttemptAt = nil
		return s.PaymentRequestRepo.Update(txCtx, pr)
	})
}
