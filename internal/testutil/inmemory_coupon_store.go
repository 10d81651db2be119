package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/coupon"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryCouponStore struct {
	mu      sync.RWMutex
	coupons map[string]*coupon.Coupon
	applied map[string]*coupon.AppliedCoupon
	seq     int
	order   map[string]int
}

func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{
		coupons: make(map[string]*coupon.Coupon),
		applied: make(map[string]*coupon.AppliedCoupon),
		order:   make(map[string]int),
	}
}

func (s *InMemoryCouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.coupons {
		if existing.Code == c.Code && existing.Status != types.StatusDeleted {
			return ierr.NewError("coupon already exists").
				WithHint("Coupon with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.coupons[c.ID] = c
	return nil
}

func (s *InMemoryCouponStore) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[id]
	if !ok || c.Status == types.StatusDeleted {
		return nil, ierr.NewError("coupon not found").
			WithHint("Coupon not found").
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryCouponStore) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coupons {
		if c.Code == code && c.Status != types.StatusDeleted {
			return c, nil
		}
	}
	return nil, ierr.NewError("coupon not found").
		WithHint("Coupon not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCouponStore) CreateApplied(ctx context.Context, ac *coupon.AppliedCoupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[ac.ID] = s.seq
	s.applied[ac.ID] = ac
	return nil
}

func (s *InMemoryCouponStore) GetApplied(ctx context.Context, id string) (*coupon.AppliedCoupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ac, ok := s.applied[id]
	if !ok || ac.Status == types.StatusDeleted {
		return nil, ierr.NewError("applied coupon not found").
			WithHint("Applied coupon not found").
			Mark(ierr.ErrNotFound)
	}
	return ac, nil
}

func (s *InMemoryCouponStore) ListActiveByCustomer(ctx context.Context, customerID string) ([]*coupon.AppliedCoupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	applied := []*coupon.AppliedCoupon{}
	for _, ac := range s.applied {
		if ac.CustomerID == customerID && ac.Status != types.StatusDeleted &&
			ac.AppliedCouponStatus == types.AppliedCouponStatusActive {
			applied = append(applied, ac)
		}
	}
	sort.Slice(applied, func(i, j int) bool {
		return s.order[applied[i].ID] < s.order[applied[j].ID]
	})
	return applied, nil
}

func (s *InMemoryCouponStore) ListByCustomerAndCoupon(ctx context.Context, customerID, couponID string) ([]*coupon.AppliedCoupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	applied := []*coupon.AppliedCoupon{}
	for _, ac := range s.applied {
		if ac.CustomerID == customerID && ac.CouponID == couponID && ac.Status != types.StatusDeleted {
			applied = append(applied, ac)
		}
	}
	sort.Slice(applied, func(i, j int) bool {
		return s.order[applied[i].ID] < s.order[applied[j].ID]
	})
	return applied, nil
}

func (s *InMemoryCouponStore) UpdateApplied(ctx context.Context, ac *coupon.AppliedCoupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applied[ac.ID]; !ok {
		return ierr.NewError("applied coupon not found").
			WithHint("Applied coupon not found").
			Mark(ierr.ErrNotFound)
	}
	s.applied[ac.ID] = ac
	return nil
}

func (s *InMemoryCouponStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons = make(map[string]*coupon.Coupon)
	s.applied = make(map[string]*coupon.AppliedCoupon)
	s.order = make(map[string]int)
	s.seq = 0
}
