package subscription

import (
	"context"
	"time"

	"github.com/billix/billix/internal/types"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByExternalID(ctx context.Context, externalID string) (*Subscription, error)
	List(ctx context.Context, filter types.Filter) ([]*Subscription, int, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	// ListDueForInvoicing returns active subscriptions whose current
	// period ended at or before now
	ListDueForInvoicing(ctx context.Context, now time.Time) ([]*Subscription, error)

	// ListPendingActivation returns pending subscriptions whose
	// subscription_at has passed
	ListPendingActivation(ctx context.Context, now time.Time) ([]*Subscription, error)
}
