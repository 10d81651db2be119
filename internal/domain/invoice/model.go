package invoice

import (
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the billing document assembled from fees, coupons, credits and
// taxes. All amounts are in the invoice currency with four decimal places.
type Invoice struct {
	ID             string              `db:"id" json:"id"`
	InvoiceNumber  string              `db:"invoice_number" json:"invoice_number"`
	CustomerID     string              `db:"customer_id" json:"customer_id"`
	SubscriptionID *string             `db:"subscription_id" json:"subscription_id,omitempty"`
	InvoiceType    types.InvoiceType   `db:"invoice_type" json:"invoice_type"`
	InvoiceStatus  types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	Currency       string              `db:"currency" json:"currency"`

	// Amount pipeline, in application order
	Subtotal                       decimal.Decimal `db:"subtotal" json:"subtotal"`
	CouponsAmount                  decimal.Decimal `db:"coupons_amount" json:"coupons_amount"`
	PrepaidCreditAmount            decimal.Decimal `db:"prepaid_credit_amount" json:"prepaid_credit_amount"`
	ProgressiveBillingCreditAmount decimal.Decimal `db:"progressive_billing_credit_amount" json:"progressive_billing_credit_amount"`
	TaxAmount                      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Total                          decimal.Decimal `db:"total" json:"total"`
	AmountPaid                     decimal.Decimal `db:"amount_paid" json:"amount_paid"`

	PeriodStart *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd   *time.Time `db:"period_end" json:"period_end,omitempty"`
	IssuedAt    *time.Time `db:"issued_at" json:"issued_at,omitempty"`
	DueAt       *time.Time `db:"due_at" json:"due_at,omitempty"`
	FinalizedAt *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	VoidedAt    *time.Time `db:"voided_at" json:"voided_at,omitempty"`

	IdempotencyKey *string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	Description    string         `db:"description" json:"description,omitempty"`
	Metadata       types.Metadata `db:"metadata" json:"metadata,omitempty"`

	Fees []*Fee `db:"-" json:"fees,omitempty"`

	types.BaseModel
}

// AmountDue is what remains payable on the invoice
func (i *Invoice) AmountDue() decimal.Decimal {
	due := i.Total.Sub(i.AmountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// CanTransitionTo validates the requested status change
func (i *Invoice) CanTransitionTo(target types.InvoiceStatus) error {
	allowed := map[types.InvoiceStatus][]types.InvoiceStatus{
		types.InvoiceStatusDraft:     {types.InvoiceStatusFinalized, types.InvoiceStatusVoided},
		types.InvoiceStatusFinalized: {types.InvoiceStatusPaid, types.InvoiceStatusVoided},
	}
	for _, s := range allowed[i.InvoiceStatus] {
		if s == target {
			return nil
		}
	}
	return ierr.NewError("invalid invoice status transition").
		WithHintf("Cannot move invoice from %s to %s", i.InvoiceStatus, target).
		WithReportableDetails(map[string]interface{}{
			"invoice_id": i.ID,
			"from":       i.InvoiceStatus,
			"to":         target,
		}).
		Mark(ierr.ErrInvalidOperation)
}

// Fee is a single invoice line item. Fees are snapshotted at finalization
// and never recomputed afterwards.
type Fee struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	FeeType     types.FeeType   `db:"fee_type" json:"fee_type"`
	ChargeID    *string         `db:"charge_id" json:"charge_id,omitempty"`
	MetricID    *string         `db:"metric_id" json:"metric_id,omitempty"`
	Description string          `db:"description" json:"description"`
	Units       decimal.Decimal `db:"units" json:"units"`
	// EventsCount is how many events fed the aggregation behind this line
	EventsCount uint64 `db:"events_count" json:"events_count"`
	// UnitAmount is the effective per-unit price, Amount/Units when units
	// are positive
	UnitAmount    decimal.Decimal     `db:"unit_amount" json:"unit_amount"`
	Amount        decimal.Decimal     `db:"amount" json:"amount"`
	TaxAmount     decimal.Decimal     `db:"tax_amount" json:"tax_amount"`
	PaymentStatus types.PaymentStatus `db:"payment_status" json:"payment_status"`
	Currency      string              `db:"currency" json:"currency"`
	Metadata      types.Metadata      `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

// Settlement links money applied to a finalized invoice back to its source
type Settlement struct {
	ID         string                     `db:"id" json:"id"`
	InvoiceID  string                     `db:"invoice_id" json:"invoice_id"`
	SourceType types.SettlementSourceType `db:"source_type" json:"source_type"`
	SourceID   string                     `db:"source_id" json:"source_id"`
	Amount     decimal.Decimal            `db:"amount" json:"amount"`
	Currency   string                     `db:"currency" json:"currency"`
	types.BaseModel
}
