package invoice

import (
	"context"
	"time"

	"github.com/billix/billix/internal/types"
)

type Repository interface {
	// CreateWithLineItems persists the invoice and its fees atomically
	CreateWithLineItems(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, filter *InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *InvoiceFilter) (int, error)

	// ListOutstanding returns finalized, unpaid invoices past due for a
	// customer, the dunning candidate set
	ListOutstanding(ctx context.Context, customerID string, asOf time.Time) ([]*Invoice, error)

	CreateSettlement(ctx context.Context, s *Settlement) error
	ListSettlements(ctx context.Context, invoiceID string) ([]*Settlement, error)
}

type InvoiceFilter struct {
	*types.Filter
	CustomerID     string
	SubscriptionID string
	InvoiceStatus  []types.InvoiceStatus
	InvoiceType    types.InvoiceType
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
}
