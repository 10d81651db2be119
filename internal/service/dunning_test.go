package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/dunning"
	"github.com/billix/billix/internal/domain/paymentrequest"
	"github.com/billix/billix/internal/domain/tenant"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// stubPaymentProvider charges successfully or fails with a fixed error
type stubPaymentProvider struct {
	err   error
	calls int
}

func (p *stubPaymentProvider) Charge(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	p.calls++
	return p.err
}

type DunningServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        DunningService
	invoiceService InvoiceService
	provider       *stubPaymentProvider
	customer       *customer.Customer
}

func TestDunningService(t *testing.T) {
	suite.Run(t, new(DunningServiceSuite))
}

func (s *DunningServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newServiceParams(&s.BaseServiceTestSuite)
	s.provider = &stubPaymentProvider{}
	s.service = NewDunningService(params, s.provider)
	s.invoiceService = NewInvoiceService(params)

	err := s.GetStores().TenantRepo.Create(s.GetContext(), &tenant.Tenant{
		ID:        types.DefaultTenantID,
		Name:      "Acme",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
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

func (s *DunningServiceSuite) createCampaign(threshold string) *dunning.Campaign {
	c := &dunning.Campaign{
		Name:                "Default",
		Code:                "default",
		MaxAttempts:         2,
		DaysBetweenAttempts: 3,
		AppliedToOrg:        true,
		Thresholds: []*dunning.Threshold{{
			Currency: "usd",
			Amount:   decimal.RequireFromString(threshold),
		}},
	}
	s.Require().NoError(s.service.CreateCampaign(s.GetContext(), c))
	return c
}

// overdueInvoice generates and finalizes a one-off invoice. The customer has
// no payment term so the invoice is due immediately.
func (s *DunningServiceSuite) overdueInvoice(amount string) string {
	inv, err := s.invoiceService.GenerateOneOff(s.GetContext(), &dto.CreateOneOffInvoiceRequest{
		CustomerID: s.customer.ID,
		LineItems: []dto.OneOffLineItem{{
			Description: "Usage",
			Amount:      decimal.RequireFromString(amount),
		}},
	})
	s.Require().NoError(err)
	_, err = s.invoiceService.FinalizeInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	return inv.ID
}

func (s *DunningServiceSuite) openRequests() []*paymentrequest.PaymentRequest {
	prs, err := s.GetStores().PaymentRequestRepo.ListOpenByCustomer(s.GetContext(), s.customer.ID)
	s.Require().NoError(err)
	return prs
}

func (s *DunningServiceSuite) TestTickCreatesPaymentRequest() {
	s.createCampaign("50")
	invoiceID := s.overdueInvoice("100")

	s.NoError(s.service.Tick(s.GetContext(), s.GetNow().Add(time.Hour)))

	prs := s.openRequests()
	s.Require().Len(prs, 1)
	s.Equal(types.PaymentRequestStatusPending, prs[0].PaymentStatus)
	s.Equal("100", prs[0].Amount.String())
	s.Equal("usd", prs[0].Currency)
	s.Equal([]string{invoiceID}, prs[0].InvoiceIDs)
}

func (s *DunningServiceSuite) TestTickBelowThreshold() {
	s.createCampaign("50")
	s.overdueInvoice("30")

	s.NoError(s.service.Tick(s.GetContext(), s.GetNow().Add(time.Hour)))
	s.Empty(s.openRequests())
}

func (s *DunningServiceSuite) TestTickSkipsCoveredInvoices() {
	s.createCampaign("50")
	s.overdueInvoice("100")

	now := s.GetNow().Add(time.Hour)
	s.NoError(s.service.Tick(s.GetContext(), now))
	s.NoError(s.service.Tick(s.GetContext(), now))

	// the second sweep must not duplicate the open request
	s.Len(s.openRequests(), 1)
}

func (s *DunningServiceSuite) TestTickAggregatesAcrossInvoices() {
	s.createCampaign("50")
	s.overdueInvoice("30")
	s.overdueInvoice("30")

	// neither invoice crosses the threshold alone
	s.NoError(s.service.Tick(s.GetContext(), s.GetNow().Add(time.Hour)))

	prs := s.openRequests()
	s.Require().Len(prs, 1)
	s.Equal("60", prs[0].Amount.String())
	s.Len(prs[0].InvoiceIDs, 2)
}

func (s *DunningServiceSuite) TestTickWithoutCampaign() {
	s.overdueInvoice("100")
	s.NoError(s.service.Tick(s.GetContext(), s.GetNow().Add(time.Hour)))
	s.Empty(s.openRequests())
}

func (s *DunningServiceSuite) TestProcessAttemptSuccess() {
	s.createCampaign("50")
	invoiceID := s.overdueInvoice("100")

	now := s.GetNow().Add(time.Hour)
	s.NoError(s.service.Tick(s.GetContext(), now))
	pr := s.openRequests()[0]

	s.NoError(s.service.ProcessAttempt(s.GetContext(), pr.ID, now))
	s.Equal(1, s.provider.calls)

	got, err := s.service.GetPaymentRequest(s.GetContext(), pr.ID)
	s.NoError(err)
	s.Equal(types.PaymentRequestStatusSucceeded, got.PaymentStatus)
	s.Equal(1, got.AttemptCount)
	s.Nil(got.NextAttemptAt)

	// the covered invoice settles in full and flips to paid
	inv, err := s.invoiceService.GetInvoice(s.GetContext(), invoiceID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.True(inv.AmountDue().IsZero())

	payments, err := s.GetStores().PaymentRequestRepo.ListPayments(s.GetContext(), pr.ID)
	s.NoError(err)
	s.Require().Len(payments, 1)
	s.Equal("100", payments[0].Amount.String())
}

func (s *DunningServiceSuite) TestProcessAttemptFailureBacksOff() {
	s.createCampaign("50")
	s.overdueInvoice("100")
	s.provider.err = errors.New("card declined")

	now := s.GetNow().Add(time.Hour)
	s.NoError(s.service.Tick(s.GetContext(), now))
	pr := s.openRequests()[0]

	// first failure schedules a retry after the campaign interval
	s.NoError(s.service.ProcessAttempt(s.GetContext(), pr.ID, now))

	got, err := s.service.GetPaymentRequest(s.GetContext(), pr.ID)
	s.NoError(err)
	s.Equal(types.PaymentRequestStatusPending, got.PaymentStatus)
	s.Equal(1, got.AttemptCount)
	s.Require().NotNil(got.NextAttemptAt)
	s.Equal(now.AddDate(0, 0, 3), *got.NextAttemptAt)

	// the second failure exhausts max_attempts
	s.NoError(s.service.ProcessAttempt(s.GetContext(), pr.ID, now))

	got, err = s.service.GetPaymentRequest(s.GetContext(), pr.ID)
	s.NoError(err)
	s.Equal(types.PaymentRequestStatusFailed, got.PaymentStatus)
	s.Equal(2, got.AttemptCount)
	s.Nil(got.NextAttemptAt)

	// terminal requests reject further attempts
	err = s.service.ProcessAttempt(s.GetContext(), pr.ID, now)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *DunningServiceSuite) TestRetryTickDrivesDueRequests() {
	s.createCampaign("50")
	s.overdueInvoice("100")
	s.provider.err = errors.New("card declined")

	now := s.GetNow().Add(time.Hour)
	s.NoError(s.service.Tick(s.GetContext(), now))
	pr := s.openRequests()[0]
	s.NoError(s.service.ProcessAttempt(s.GetContext(), pr.ID, now))

	// not due yet
	s.provider.err = nil
	s.NoError(s.service.RetryTick(s.GetContext(), now.AddDate(0, 0, 1)))
	got, err := s.service.GetPaymentRequest(s.GetContext(), pr.ID)
	s.NoError(err)
	s.Equal(types.PaymentRequestStatusPending, got.PaymentStatus)

	// past the backoff the retry succeeds
	s.NoError(s.service.RetryTick(s.GetContext(), now.AddDate(0, 0, 4)))
	got, err = s.service.GetPaymentRequest(s.GetContext(), pr.ID)
	s.NoError(err)
	s.Equal(types.PaymentRequestStatusSucceeded, got.PaymentStatus)
}

func (s *DunningServiceSuite) TestProcessAttemptWithoutProvider() {
	s.createCampaign("50")
	s.overdueInvoice("100")

	now := s.GetNow().Add(time.Hour)
	s.NoError(s.service.Tick(s.GetContext(), now))
	pr := s.openRequests()[0]

	noProvider := NewDunningService(newServiceParams(&s.BaseServiceTestSuite), nil)
	err := noProvider.ProcessAttempt(s.GetContext(), pr.ID, now)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
