package creditnote

import (
	"time"

	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// CreditNote reverses part of an invoice or, for the offset type, records a
// progressive-billing credit waiting to be consumed by the period-end
// invoice.
type CreditNote struct {
	ID               string                 `db:"id" json:"id"`
	Number           string                 `db:"number" json:"number"`
	InvoiceID        string                 `db:"invoice_id" json:"invoice_id"`
	CustomerID       string                 `db:"customer_id" json:"customer_id"`
	CreditNoteType   types.CreditNoteType   `db:"credit_note_type" json:"credit_note_type"`
	CreditNoteStatus types.CreditNoteStatus `db:"credit_note_status" json:"credit_note_status"`
	CreditStatus     *types.CreditStatus    `db:"credit_status" json:"credit_status,omitempty"`
	RefundStatus     *types.RefundStatus    `db:"refund_status" json:"refund_status,omitempty"`
	Currency         string                 `db:"currency" json:"currency"`
	TotalAmount      decimal.Decimal        `db:"total_amount" json:"total_amount"`
	// ConsumedAmount tracks how much of an available credit has been
	// drawn by later invoices
	ConsumedAmount decimal.Decimal `db:"consumed_amount" json:"consumed_amount"`
	Reason         string          `db:"reason" json:"reason,omitempty"`
	FinalizedAt    *time.Time      `db:"finalized_at" json:"finalized_at,omitempty"`
	Items          []*Item         `db:"-" json:"items,omitempty"`
	types.BaseModel
}

// AvailableAmount is the undrawn remainder of an available credit
func (cn *CreditNote) AvailableAmount() decimal.Decimal {
	remaining := cn.TotalAmount.Sub(cn.ConsumedAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Item maps a credited amount back to the fee it reverses
type Item struct {
	ID           string          `db:"id" json:"id"`
	CreditNoteID string          `db:"credit_note_id" json:"credit_note_id"`
	FeeID        string          `db:"fee_id" json:"fee_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	types.BaseModel
}
