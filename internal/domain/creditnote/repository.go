package creditnote

import (
	"context"

	"github.com/billix/billix/internal/types"
)

type Repository interface {
	// CreateWithItems persists the credit note and its items atomically
	CreateWithItems(ctx context.Context, cn *CreditNote) error
	Get(ctx context.Context, id string) (*CreditNote, error)
	Update(ctx context.Context, cn *CreditNote) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*CreditNote, error)
	// ListAvailableOffsets returns offset credit notes with undrawn
	// balance for a subscription's customer, oldest first
	ListAvailableOffsets(ctx context.Context, customerID, currency string) ([]*CreditNote, error)
	ListByCustomer(ctx context.Context, customerID string, filter *types.Filter) ([]*CreditNote, error)
}
