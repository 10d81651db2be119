package paymentrequest

import (
	"time"

	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// PaymentRequest groups a customer's outstanding invoices in one currency
// into a single collection attempt driven by a dunning campaign.
type PaymentRequest struct {
	ID                string                     `db:"id" json:"id"`
	CustomerID        string                     `db:"customer_id" json:"customer_id"`
	DunningCampaignID string                     `db:"dunning_campaign_id" json:"dunning_campaign_id"`
	Currency          string                     `db:"currency" json:"currency"`
	Amount            decimal.Decimal            `db:"amount" json:"amount"`
	PaymentStatus     types.PaymentRequestStatus `db:"payment_status" json:"payment_status"`
	AttemptCount      int                        `db:"attempt_count" json:"attempt_count"`
	LastAttemptAt     *time.Time                 `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	NextAttemptAt     *time.Time                 `db:"next_attempt_at" json:"next_attempt_at,omitempty"`
	InvoiceIDs        []string                   `db:"-" json:"invoice_ids"`
	types.BaseModel
}

// Payment is a successful collection recorded against a payment request.
// Settlements on the covered invoices reference the payment row.
type Payment struct {
	ID               string          `db:"id" json:"id"`
	PaymentRequestID string          `db:"payment_request_id" json:"payment_request_id"`
	CustomerID       string          `db:"customer_id" json:"customer_id"`
	Currency         string          `db:"currency" json:"currency"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	SucceededAt      time.Time       `db:"succeeded_at" json:"succeeded_at"`
	types.BaseModel
}
