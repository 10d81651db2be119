package service

import (
	"context"

	"github.com/billix/billix/internal/domain/creditnote"
	"github.com/billix/billix/internal/domain/invoice"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type CreateCreditNoteItem struct {
	FeeID  string
	Amount decimal.Decimal
}

type CreditNoteService interface {
	// CreateCreditNote issues a draft refund or credit note against a
	// finalized invoice. Item amounts are capped at the fee amount minus
	// what earlier credit notes already reversed.
	CreateCreditNote(ctx context.Context, invoiceID string, cnType types.CreditNoteType, items []CreateCreditNoteItem, reason string) (*creditnote.CreditNote, error)

	// CreateOffset records a mid-period progressive-billing credit that
	// the period-end invoice will consume
	CreateOffset(ctx context.Context, invoiceID string, amount decimal.Decimal, reason string) (*creditnote.CreditNote, error)

	FinalizeCreditNote(ctx context.Context, id string) error
	GetCreditNote(ctx context.Context, id string) (*creditnote.CreditNote, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*creditnote.CreditNote, error)
}

type creditNoteService struct {
	ServiceParams
	invoiceService InvoiceService
}

func NewCreditNoteService(params ServiceParams) CreditNoteService {
	return &creditNoteService{
		ServiceParams:  params,
		invoiceService: NewInvoiceService(params),
	}
}

func (s *creditNoteService) CreateCreditNote(ctx context.Context, invoiceID string, cnType types.CreditNoteType, items []CreateCreditNoteItem, reason string) (*creditnote.CreditNote, error) {
	if cnType != types.CreditNoteTypeRefund && cnType != types.CreditNoteTypeCredit {
		return nil, ierr.NewError("invalid credit note type").
			WithHint("Credit note type must be refund or credit").
			Mark(ierr.ErrValidation)
	}
	if len(items) == 0 {
		return nil, ierr.NewError("credit note requires at least one item").
			WithHint("Provide at least one fee to credit").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceStatus != types.InvoiceStatusFinalized && inv.InvoiceStatus != types.InvoiceStatusPaid {
		return nil, ierr.NewError("invoice is not finalized").
			WithHintf("Credit notes can only be issued against finalized invoices, invoice is %s", inv.InvoiceStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	credited, err := s.creditedPerFee(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	fees := make(map[string]*invoice.Fee, len(inv.Fees))
	for _, f := range inv.Fees {
		fees[f.ID] = f
	}

	cn := &creditnote.CreditNote{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE),
		Number:           types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_CREDIT_NOTE),
		InvoiceID:        inv.ID,
		CustomerID:       inv.CustomerID,
		CreditNoteType:   cnType,
		CreditNoteStatus: types.CreditNoteStatusDraft,
		Currency:         inv.Currency,
		Reason:           reason,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}

	total := decimal.Zero
	for _, item := range items {
		fee, ok := fees[item.FeeID]
		if !ok {
			return nil, ierr.NewError("fee does not belong to invoice").
				WithHintf("Fee %s is not on invoice %s", item.FeeID, inv.ID).
				Mark(ierr.ErrValidation)
		}
		creditable := fee.Amount.Sub(credited[fee.ID])
		if item.Amount.IsNegative() || item.Amount.IsZero() || item.Amount.GreaterThan(creditable) {
			return nil, ierr.NewError("item amount exceeds creditable remainder").
				WithHintf("Fee %s has %s creditable", fee.ID, creditable.StringFixed(4)).
				WithReportableDetails(map[string]interface{}{
					"fee_id":     fee.ID,
					"amount":     item.Amount.String(),
					"creditable": creditable.String(),
				}).
				Mark(ierr.ErrValidation)
		}
		total = total.Add(item.Amount)
		cn.Items = append(cn.Items, &creditnote.Item{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE_ITEM),
			CreditNoteID: cn.ID,
			FeeID:        fee.ID,
			Amount:       item.Amount,
			BaseModel:    types.GetDefaultBaseModel(ctx),
		})
	}
	cn.TotalAmount = total

	if err := s.CreditNoteRepo.CreateWithItems(ctx, cn); err != nil {
		return nil, err
	}
	return cn, nil
}

func (s *creditNoteService) CreateOffset(ctx context.Context, invoiceID string, amount decimal.Decimal, reason string) (*creditnote.CreditNote, error) {
	if !amount.IsPositive() {
		return nil, ierr.NewError("offset amount must be positive").
			WithHint("Offset credit amount must be positive").
			Mark(ierr.ErrValidation)
	}
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	available := types.CreditStatusAvailable
	cn := &creditnote.CreditNote{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE),
		Number:           types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_CREDIT_NOTE),
		InvoiceID:        inv.ID,
		CustomerID:       inv.CustomerID,
		CreditNoteType:   types.CreditNoteTypeOffset,
		CreditNoteStatus: types.CreditNoteStatusFinalized,
		CreditStatus:     &available,
		Currency:         inv.Currency,
		TotalAmount:      amount,
		Reason:           reason,
		FinalizedAt:      &now,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if err := s.CreditNoteRepo.CreateWithItems(ctx, cn); err != nil {
		return nil, err
	}
	return cn, nil
}

func (s *creditNoteService) FinalizeCreditNote(ctx context.Context, id string) error {
	cn, err := s.CreditNoteRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if cn.CreditNoteStatus != types.CreditNoteStatusDraft {
		return ierr.NewError("credit note is not draft").
			WithHintf("Credit note %s is already %s", cn.ID, cn.CreditNoteStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		now := timeNow()
		cn.CreditNoteStatus = types.CreditNoteStatusFinalized
		cn.FinalizedAt = &now

		switch cn.CreditNoteType {
		case types.CreditNoteTypeRefund:
			pending := types.RefundStatusPending
			cn.RefundStatus = &pending
		case types.CreditNoteTypeCredit:
			// A credit settles the invoice's open balance first; any
			// surplus stays available for later invoices
			inv, err := s.InvoiceRepo.Get(txCtx, cn.InvoiceID)
			if err != nil {
				return err
			}
			due := inv.AmountDue()
			settle := decimal.Min(cn.TotalAmount, due)
			if settle.IsPositive() && inv.InvoiceStatus == types.InvoiceStatusFinalized {
				if err := s.invoiceService.RecordSettlement(txCtx, inv.ID, types.SettlementSourceCreditNote, cn.ID, settle); err != nil {
					return err
				}
				cn.ConsumedAmount = settle
			}
			status := types.CreditStatusAvailable
			if !cn.AvailableAmount().IsPositive() {
				status = types.CreditStatusConsumed
			}
			cn.CreditStatus = &status
		}
		return s.CreditNoteRepo.Update(txCtx, cn)
	})
}

func (s *creditNoteService) GetCreditNote(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	return s.CreditNoteRepo.Get(ctx, id)
}

func (s *creditNoteService) ListByInvoice(ctx context.Context, invoiceID string) ([]*creditnote.CreditNote, error) {
	return s.CreditNoteRepo.ListByInvoice(ctx, invoiceID)
}

// creditedPerFee sums prior credit note items per fee, draft included, so
// concurrent drafts cannot over-credit a fee
func (s *creditNoteService) creditedPerFee(ctx context.Context, invoiceID string) (map[string]decimal.Decimal, error) {
	existing, err := s.CreditNoteRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	credited := make(map[string]decimal.Decimal)
	for _, cn := range existing {
		if cn.CreditNoteType == types.CreditNoteTypeOffset {
			continue
		}
		for _, item := range cn.Items {
			credited[item.FeeID] = credited[item.FeeID].Add(item.Amount)
		}
	}
	return credited, nil
}
