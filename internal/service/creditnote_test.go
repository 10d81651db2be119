package service

import (
	"testing"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/domain/tenant"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CreditNoteServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        CreditNoteService
	invoiceService InvoiceService
}

func TestCreditNoteService(t *testing.T) {
	suite.Run(t, new(CreditNoteServiceSuite))
}

func (s *CreditNoteServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newServiceParams(&s.BaseServiceTestSuite)
	s.service = NewCreditNoteService(params)
	s.invoiceService = NewInvoiceService(params)

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
}

// finalizedInvoice generates and finalizes a one-off invoice with one fee
// per amount
func (s *CreditNoteServiceSuite) finalizedInvoice(amounts ...string) *invoice.Invoice {
	items := make([]dto.OneOffLineItem, 0, len(amounts))
	for _, amount := range amounts {
		items = append(items, dto.OneOffLineItem{
			Description: "Usage",
			Amount:      decimal.RequireFromString(amount),
		})
	}
	inv, err := s.invoiceService.GenerateOneOff(s.GetContext(), &dto.CreateOneOffInvoiceRequest{
		CustomerID: "cust-1",
		LineItems:  items,
	})
	s.Require().NoError(err)
	inv, err = s.invoiceService.FinalizeInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	return inv
}

func (s *CreditNoteServiceSuite) TestCreateCreditNote() {
	inv := s.finalizedInvoice("100", "50")

	cn, err := s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(40)},
		{FeeID: inv.Fees[1].ID, Amount: decimal.NewFromInt(10)},
	}, "duplicate charge")
	s.NoError(err)
	s.Equal(types.CreditNoteStatusDraft, cn.CreditNoteStatus)
	s.Equal("50", cn.TotalAmount.String())
	s.Equal("usd", cn.Currency)
	s.Len(cn.Items, 2)
}

func (s *CreditNoteServiceSuite) TestCreateRequiresFinalizedInvoice() {
	inv, err := s.invoiceService.GenerateOneOff(s.GetContext(), &dto.CreateOneOffInvoiceRequest{
		CustomerID: "cust-1",
		LineItems:  []dto.OneOffLineItem{{Description: "Usage", Amount: decimal.NewFromInt(100)}},
	})
	s.Require().NoError(err)

	_, err = s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(10)},
	}, "")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *CreditNoteServiceSuite) TestCreateValidation() {
	inv := s.finalizedInvoice("100")

	// offsets have their own entry point
	_, err := s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeOffset, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(10)},
	}, "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, nil, "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: "fee-unknown", Amount: decimal.NewFromInt(10)},
	}, "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(101)},
	}, "")
	s.True(ierr.IsValidation(err))
}

func (s *CreditNoteServiceSuite) TestCreditableRemainderShrinks() {
	inv := s.finalizedInvoice("100")

	_, err := s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(70)},
	}, "")
	s.Require().NoError(err)

	// only 30 remains creditable on the fee, draft notes included
	_, err = s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(31)},
	}, "")
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(30)},
	}, "")
	s.NoError(err)
}

func (s *CreditNoteServiceSuite) TestFinalizeRefund() {
	inv := s.finalizedInvoice("100")

	cn, err := s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(40)},
	}, "")
	s.Require().NoError(err)

	s.NoError(s.service.FinalizeCreditNote(s.GetContext(), cn.ID))

	got, err := s.service.GetCreditNote(s.GetContext(), cn.ID)
	s.NoError(err)
	s.Equal(types.CreditNoteStatusFinalized, got.CreditNoteStatus)
	s.Require().NotNil(got.RefundStatus)
	s.Equal(types.RefundStatusPending, *got.RefundStatus)
	s.NotNil(got.FinalizedAt)

	// refunds return cash, they do not settle the invoice
	inv, err = s.invoiceService.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal("100", inv.AmountDue().String())
}

func (s *CreditNoteServiceSuite) TestFinalizeCreditSettlesOpenBalance() {
	inv := s.finalizedInvoice("100")

	// 80 already collected, 20 still open
	s.Require().NoError(s.invoiceService.RecordSettlement(
		s.GetContext(), inv.ID, types.SettlementSourcePayment, "pay-1", decimal.NewFromInt(80)))

	cn, err := s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeCredit, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(50)},
	}, "")
	s.Require().NoError(err)
	s.NoError(s.service.FinalizeCreditNote(s.GetContext(), cn.ID))

	// the open 20 settles, the surplus 30 stays available
	got, err := s.service.GetCreditNote(s.GetContext(), cn.ID)
	s.NoError(err)
	s.Equal("20", got.ConsumedAmount.String())
	s.Equal("30", got.AvailableAmount().String())
	s.Require().NotNil(got.CreditStatus)
	s.Equal(types.CreditStatusAvailable, *got.CreditStatus)

	inv, err = s.invoiceService.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.True(inv.AmountDue().IsZero())
}

func (s *CreditNoteServiceSuite) TestFinalizeCreditFullyConsumed() {
	inv := s.finalizedInvoice("100")

	cn, err := s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeCredit, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(40)},
	}, "")
	s.Require().NoError(err)
	s.NoError(s.service.FinalizeCreditNote(s.GetContext(), cn.ID))

	got, err := s.service.GetCreditNote(s.GetContext(), cn.ID)
	s.NoError(err)
	s.Equal("40", got.ConsumedAmount.String())
	s.Require().NotNil(got.CreditStatus)
	s.Equal(types.CreditStatusConsumed, *got.CreditStatus)

	inv, err = s.invoiceService.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal("60", inv.AmountDue().String())
}

func (s *CreditNoteServiceSuite) TestFinalizeTwiceRejected() {
	inv := s.finalizedInvoice("100")

	cn, err := s.service.CreateCreditNote(s.GetContext(), inv.ID, types.CreditNoteTypeRefund, []CreateCreditNoteItem{
		{FeeID: inv.Fees[0].ID, Amount: decimal.NewFromInt(10)},
	}, "")
	s.Require().NoError(err)
	s.NoError(s.service.FinalizeCreditNote(s.GetContext(), cn.ID))

	err = s.service.FinalizeCreditNote(s.GetContext(), cn.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *CreditNoteServiceSuite) TestCreateOffset() {
	inv := s.finalizedInvoice("100")

	cn, err := s.service.CreateOffset(s.GetContext(), inv.ID, decimal.NewFromInt(25), "mid-period threshold invoice")
	s.NoError(err)
	s.Equal(types.CreditNoteTypeOffset, cn.CreditNoteType)
	s.Equal(types.CreditNoteStatusFinalized, cn.CreditNoteStatus)
	s.Require().NotNil(cn.CreditStatus)
	s.Equal(types.CreditStatusAvailable, *cn.CreditStatus)

	_, err = s.service.CreateOffset(s.GetContext(), inv.ID, decimal.Zero, "")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
