package dto

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/validator"
	"github.com/shopspring/decimal"
)

// OneOffLineItem is a caller-supplied line on a one-off invoice
type OneOffLineItem struct {
	Description string          `json:"description" validate:"required"`
	Units       decimal.Decimal `json:"units"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
}

type CreateOneOffInvoiceRequest struct {
	CustomerID  string           `json:"customer_id" validate:"required" binding:"required"`
	Description string           `json:"description"`
	LineItems   []OneOffLineItem `json:"line_items" validate:"required,min=1,dive"`
}

func (r *CreateOneOffInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreateOneOffInvoiceRequest) ToFees(ctx context.Context, currency string) []*invoice.Fee {
	fees := make([]*invoice.Fee, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		units := li.Units
		if units.IsZero() {
			units = decimal.NewFromInt(1)
		}
		fees = append(fees, &invoice.Fee{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FEE),
			FeeType:       types.FeeTypeAddOn,
			Description:   li.Description,
			Units:         units,
			UnitAmount:    li.Amount.Div(units),
			Amount:        li.Amount,
			PaymentStatus: types.PaymentStatusPending,
			Currency:      currency,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		})
	}
	return fees
}

// ListInvoicesRequest is the query surface of the invoice list endpoint
type ListInvoicesRequest struct {
	types.Filter
	CustomerID     string                `form:"customer_id"`
	SubscriptionID string                `form:"subscription_id"`
	InvoiceStatus  []types.InvoiceStatus `form:"invoice_status"`
	InvoiceType    types.InvoiceType     `form:"invoice_type"`
	PeriodStart    *time.Time            `form:"period_start"`
	PeriodEnd      *time.Time            `form:"period_end"`
}

func (r *ListInvoicesRequest) ToFilter() *invoice.InvoiceFilter {
	f := r.Filter
	return &invoice.InvoiceFilter{
		Filter:         &f,
		CustomerID:     r.CustomerID,
		SubscriptionID: r.SubscriptionID,
		InvoiceStatus:  r.InvoiceStatus,
		InvoiceType:    r.InvoiceType,
		PeriodStart:    r.PeriodStart,
		PeriodEnd:      r.PeriodEnd,
	}
}

// InvoiceResponse serializes monetary fields as 4-place decimal strings
type InvoiceResponse struct {
	ID                             string              `json:"id"`
	InvoiceNumber                  string              `json:"invoice_number"`
	CustomerID                     string              `json:"customer_id"`
	SubscriptionID                 *string             `json:"subscription_id,omitempty"`
	InvoiceType                    types.InvoiceType   `json:"invoice_type"`
	InvoiceStatus                  types.InvoiceStatus `json:"invoice_status"`
	Currency                       string              `json:"currency"`
	Subtotal                       string              `json:"subtotal"`
	CouponsAmount                  string              `json:"coupons_amount"`
	PrepaidCreditAmount            string              `json:"prepaid_credit_amount"`
	ProgressiveBillingCreditAmount string              `json:"progressive_billing_credit_amount"`
	TaxAmount                      string              `json:"tax_amount"`
	Total                          string              `json:"total"`
	AmountPaid                     string              `json:"amount_paid"`
	PeriodStart                    *time.Time          `json:"period_start,omitempty"`
	PeriodEnd                      *time.Time          `json:"period_end,omitempty"`
	IssuedAt                       *time.Time          `json:"issued_at,omitempty"`
	DueAt                          *time.Time          `json:"due_at,omitempty"`
	Fees                           []FeeResponse       `json:"fees,omitempty"`
}

type FeeResponse struct {
	ID            string              `json:"id"`
	FeeType       types.FeeType       `json:"fee_type"`
	Description   string              `json:"description"`
	Units         string              `json:"units"`
	EventsCount   uint64              `json:"events_count"`
	UnitAmount    string              `json:"unit_amount"`
	Amount        string              `json:"amount"`
	TaxAmount     string              `json:"tax_amount"`
	PaymentStatus types.PaymentStatus `json:"payment_status"`
	Currency      string              `json:"currency"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:                             inv.ID,
		InvoiceNumber:                  inv.InvoiceNumber,
		CustomerID:                     inv.CustomerID,
		SubscriptionID:                 inv.SubscriptionID,
		InvoiceType:                    inv.InvoiceType,
		InvoiceStatus:                  inv.InvoiceStatus,
		Currency:                       inv.Currency,
		Subtotal:                       inv.Subtotal.StringFixed(4),
		CouponsAmount:                  inv.CouponsAmount.StringFixed(4),
		PrepaidCreditAmount:            inv.PrepaidCreditAmount.StringFixed(4),
		ProgressiveBillingCreditAmount: inv.ProgressiveBillingCreditAmount.StringFixed(4),
		TaxAmount:                      inv.TaxAmount.StringFixed(4),
		Total:                          inv.Total.StringFixed(4),
		AmountPaid:                     inv.AmountPaid.StringFixed(4),
		PeriodStart:                    inv.PeriodStart,
		PeriodEnd:                      inv.PeriodEnd,
		IssuedAt:                       inv.IssuedAt,
		DueAt:                          inv.DueAt,
	}
	for _, f := range inv.Fees {
		resp.Fees = append(resp.Fees, FeeResponse{
			ID:            f.ID,
			FeeType:       f.FeeType,
			Description:   f.Description,
			Units:         f.Units.StringFixed(4),
			EventsCount:   f.EventsCount,
			UnitAmount:    f.UnitAmount.StringFixed(4),
			Amount:        f.Amount.StringFixed(4),
			TaxAmount:     f.TaxAmount.StringFixed(4),
			PaymentStatus: f.PaymentStatus,
			Currency:      f.Currency,
		})
	}
	return resp
}
