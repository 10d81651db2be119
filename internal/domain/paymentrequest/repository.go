package paymentrequest

import (
	"context"
	"time"

	"github.com/billix/billix/internal/types"
)

type Repository interface {
	// Create persists the request and its invoice links atomically
	Create(ctx context.Context, pr *PaymentRequest) error
	Get(ctx context.Context, id string) (*PaymentRequest, error)
	Update(ctx context.Context, pr *PaymentRequest) error
	// ListOpenByCustomer returns non-failed requests for the customer;
	// an invoice covered by any of them is excluded from new requests
	ListOpenByCustomer(ctx context.Context, customerID string) ([]*PaymentRequest, error)
	// ListDueForRetry returns pending requests whose next attempt time
	// has passed
	ListDueForRetry(ctx context.Context, asOf time.Time) ([]*PaymentRequest, error)
	ListByCustomer(ctx context.Context, customerID string, filter *types.Filter) ([]*PaymentRequest, error)

	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, paymentRequestID string) ([]*Payment, error)
}
