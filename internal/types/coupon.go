package types

// CouponType is the discount shape
type CouponType string

const (
	CouponTypeFixedAmount CouponType = "fixed_amount"
	CouponTypePercentage  CouponType = "percentage"
)

// CouponFrequency decides how many invoices a coupon applies to
type CouponFrequency string

const (
	CouponFrequencyOnce      CouponFrequency = "once"
	CouponFrequencyRecurring CouponFrequency = "recurring"
	CouponFrequencyForever   CouponFrequency = "forever"
)

// AppliedCouponStatus is the lifecycle of a coupon attached to a customer
type AppliedCouponStatus string

const (
	AppliedCouponStatusActive     AppliedCouponStatus = "active"
	AppliedCouponStatusTerminated AppliedCouponStatus = "terminated"
)
