package coupon

import "context"

type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	Get(ctx context.Context, id string) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)

	CreateApplied(ctx context.Context, ac *AppliedCoupon) error
	GetApplied(ctx context.Context, id string) (*AppliedCoupon, error)
	// ListActiveByCustomer returns active applied coupons in creation
	// order, the order discounts are applied in
	ListActiveByCustomer(ctx context.Context, customerID string) ([]*AppliedCoupon, error)
	// ListByCustomerAndCoupon returns every application of one coupon to
	// one customer regardless of applied status, for reuse checks
	ListByCustomerAndCoupon(ctx context.Context, customerID, couponID string) ([]*AppliedCoupon, error)
	UpdateApplied(ctx context.Context, ac *AppliedCoupon) error
}
