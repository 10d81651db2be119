package service

import (
	"testing"
	"time"

	"github.com/billix/billix/internal/domain/coupon"
	"github.com/billix/billix/internal/domain/customer"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CouponServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CouponService
}

func TestCouponService(t *testing.T) {
	suite.Run(t, new(CouponServiceSuite))
}

func (s *CouponServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCouponService(newServiceParams(&s.BaseServiceTestSuite))

	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), &customer.Customer{
		ID:         "cust-1",
		ExternalID: "ext-1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *CouponServiceSuite) createCoupon(mutate func(*coupon.Coupon)) *coupon.Coupon {
	c := &coupon.Coupon{
		Name:       "Launch discount",
		Code:       "LAUNCH10",
		CouponType: types.CouponTypePercentage,
		Percentage: decimal.NewFromInt(10),
		Frequency:  types.CouponFrequencyOnce,
	}
	if mutate != nil {
		mutate(c)
	}
	s.Require().NoError(s.service.CreateCoupon(s.GetContext(), c))
	return c
}

func (s *CouponServiceSuite) TestCreateCouponDuplicateCode() {
	s.createCoupon(nil)

	err := s.service.CreateCoupon(s.GetContext(), &coupon.Coupon{
		Name:       "Same code",
		Code:       "LAUNCH10",
		CouponType: types.CouponTypePercentage,
		Percentage: decimal.NewFromInt(5),
		Frequency:  types.CouponFrequencyOnce,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *CouponServiceSuite) TestCreateCouponValidation() {
	cases := []struct {
		name   string
		coupon *coupon.Coupon
	}{
		{
			name: "percentage above 100",
			coupon: &coupon.Coupon{
				Code:       "BAD1",
				CouponType: types.CouponTypePercentage,
				Percentage: decimal.NewFromInt(120),
				Frequency:  types.CouponFrequencyOnce,
			},
		},
		{
			name: "fixed amount without currency",
			coupon: &coupon.Coupon{
				Code:       "BAD2",
				CouponType: types.CouponTypeFixedAmount,
				Amount:     decimal.NewFromInt(10),
				Frequency:  types.CouponFrequencyOnce,
			},
		},
		{
			name: "recurring without duration",
			coupon: &coupon.Coupon{
				Code:       "BAD3",
				CouponType: types.CouponTypePercentage,
				Percentage: decimal.NewFromInt(10),
				Frequency:  types.CouponFrequencyRecurring,
			},
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			err := s.service.CreateCoupon(s.GetContext(), tc.coupon)
			s.Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *CouponServiceSuite) TestApplyCoupon() {
	s.createCoupon(nil)

	ac, err := s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.NoError(err)
	s.Equal(types.AppliedCouponStatusActive, ac.AppliedCouponStatus)
	s.Nil(ac.FrequencyDurationRemaining)
}

func (s *CouponServiceSuite) TestApplyRecurringCouponSeedsCounter() {
	duration := 3
	s.createCoupon(func(c *coupon.Coupon) {
		c.Frequency = types.CouponFrequencyRecurring
		c.FrequencyDuration = &duration
	})

	ac, err := s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.NoError(err)
	s.Require().NotNil(ac.FrequencyDurationRemaining)
	s.Equal(3, *ac.FrequencyDurationRemaining)
}

func (s *CouponServiceSuite) TestApplyUnknownCode() {
	_, err := s.service.ApplyCoupon(s.GetContext(), "cust-1", "NOPE")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *CouponServiceSuite) TestApplyExpiredCoupon() {
	past := s.GetNow().Add(-time.Hour)
	s.createCoupon(func(c *coupon.Coupon) {
		c.ExpiresAt = &past
	})

	_, err := s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CouponServiceSuite) TestApplySingleUseCouponTwice() {
	s.createCoupon(nil)

	ac, err := s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.Require().NoError(err)

	_, err = s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// terminating the first application does not reopen a single-use coupon
	s.Require().NoError(s.service.TerminateAppliedCoupon(s.GetContext(), ac.ID))
	_, err = s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *CouponServiceSuite) TestReusableCouponAppliesAgain() {
	s.createCoupon(func(c *coupon.Coupon) {
		c.Reusable = true
	})

	_, err := s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.NoError(err)
	_, err = s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.NoError(err)

	active, err := s.service.ListActiveByCustomer(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Len(active, 2)
}

func (s *CouponServiceSuite) TestTerminateAppliedCoupon() {
	s.createCoupon(nil)
	ac, err := s.service.ApplyCoupon(s.GetContext(), "cust-1", "LAUNCH10")
	s.Require().NoError(err)

	s.NoError(s.service.TerminateAppliedCoupon(s.GetContext(), ac.ID))
	// terminating again is a no-op
	s.NoError(s.service.TerminateAppliedCoupon(s.GetContext(), ac.ID))

	active, err := s.service.ListActiveByCustomer(s.GetContext(), "cust-1")
	s.NoError(err)
	s.Empty(active)
}
