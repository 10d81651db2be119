package service

import (
	"context"

	"github.com/billix/billix/internal/domain/coupon"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type CouponService interface {
	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	GetCoupon(ctx context.Context, id string) (*coupon.Coupon, error)

	// ApplyCoupon attaches a coupon to a customer by code
	ApplyCoupon(ctx context.Context, customerID, code string) (*coupon.AppliedCoupon, error)
	TerminateAppliedCoupon(ctx context.Context, appliedID string) error
	ListActiveByCustomer(ctx context.Context, customerID string) ([]*coupon.AppliedCoupon, error)
}

type couponService struct {
	ServiceParams
}

func NewCouponService(params ServiceParams) CouponService {
	return &couponService{ServiceParams: params}
}

func (s *couponService) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Code == "" {
		return ierr.NewError("code is required").
			WithHint("Coupon code is required").
			Mark(ierr.ErrValidation)
	}
	if existing, err := s.CouponRepo.GetByCode(ctx, c.Code); err == nil && existing != nil {
		return ierr.NewError("coupon code already exists").
			WithHintf("A coupon with code %s already exists", c.Code).
			Mark(ierr.ErrAlreadyExists)
	} else if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if c.ID == "" {
		c.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COUPON)
	}
	if c.TenantID == "" {
		c.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	return s.CouponRepo.Create(ctx, c)
}

func (s *couponService) GetCoupon(ctx context.Context, id string) (*coupon.Coupon, error) {
	return s.CouponRepo.Get(ctx, id)
}

func (s *couponService) ApplyCoupon(ctx context.Context, customerID, code string) (*coupon.AppliedCoupon, error) {
	if _, err := s.CustomerRepo.Get(ctx, customerID); err != nil {
		return nil, err
	}
	c, err := s.CouponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if c.ExpiresAt != nil && !c.ExpiresAt.After(timeNow()) {
		return nil, ierr.NewError("coupon has expired").
			WithHintf("Coupon %s expired at %s", c.Code, c.ExpiresAt.Format("2006-01-02")).
			Mark(ierr.ErrValidation)
	}
	if !c.Reusable {
		prior, err := s.CouponRepo.ListByCustomerAndCoupon(ctx, customerID, c.ID)
		if err != nil {
			return nil, err
		}
		if len(prior) > 0 {
			return nil, ierr.NewError("coupon already applied").
				WithHintf("Coupon %s is not reusable and was already applied to this customer", c.Code).
				WithReportableDetails(map[string]interface{}{
					"coupon_id":   c.ID,
					"customer_id": customerID,
				}).
				Mark(ierr.ErrInvalidOperation)
		}
	}

	ac := &coupon.AppliedCoupon{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_APPLIED_COUPON),
		CouponID:            c.ID,
		CustomerID:          customerID,
		AppliedCouponStatus: types.AppliedCouponStatusActive,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	if c.Frequency == types.CouponFrequencyRecurring {
		remaining := *c.FrequencyDuration
		ac.FrequencyDurationRemaining = &remaining
	}
	if err := s.CouponRepo.CreateApplied(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

func (s *couponService) TerminateAppliedCoupon(ctx context.Context, appliedID string) error {
	ac, err := s.CouponRepo.GetApplied(ctx, appliedID)
	if err != nil {
		return err
	}
	if ac.AppliedCouponStatus == types.AppliedCouponStatusTerminated {
		return nil
	}
	now := timeNow()
	ac.AppliedCouponStatus = types.AppliedCouponStatusTerminated
	ac.TerminatedAt = &now
	return s.CouponRepo.UpdateApplied(ctx, ac)
}

func (s *couponService) ListActiveByCustomer(ctx context.Context, customerID string) ([]*coupon.AppliedCoupon, error) {
	return s.CouponRepo.ListActiveByCustomer(ctx, customerID)
}
