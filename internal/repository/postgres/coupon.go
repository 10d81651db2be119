package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/coupon"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type couponRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewCouponRepository(db postgres.IClient, logger *logger.Logger) coupon.Repository {
	return &couponRepository{db: db, logger: logger}
}

const couponColumns = `
	id, name, code, coupon_type, amount, percentage, currency, frequency, frequency_duration,
	reusable, expires_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const appliedCouponColumns = `
	id, coupon_id, customer_id, applied_coupon_status, frequency_duration_remaining, terminated_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	query := `
		INSERT INTO coupons (
			id, name, code, coupon_type, amount, percentage, currency, frequency, frequency_duration,
			reusable, expires_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :code, :coupon_type, :amount, :percentage, :currency, :frequency, :frequency_duration,
			:reusable, :expires_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, c)
	return wrapErr(err, "Failed to create coupon, code may already exist")
}

func (r *couponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := r.db.Querier(ctx).GetContext(ctx, &c, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Coupon not found")
	}
	return &c, nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := r.db.Querier(ctx).GetContext(ctx, &c, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE code = $1 AND tenant_id = $2 AND status != $3`,
		code, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Coupon not found")
	}
	return &c, nil
}

func (r *couponRepository) CreateApplied(ctx context.Context, ac *coupon.AppliedCoupon) error {
	query := `
		INSERT INTO applied_coupons (
			id, coupon_id, customer_id, applied_coupon_status, frequency_duration_remaining, terminated_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :coupon_id, :customer_id, :applied_coupon_status, :frequency_duration_remaining, :terminated_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, ac)
	return wrapErr(err, "Failed to apply coupon")
}

func (r *couponRepository) GetApplied(ctx context.Context, id string) (*coupon.AppliedCoupon, error) {
	var ac coupon.AppliedCoupon
	err := r.db.Querier(ctx).GetContext(ctx, &ac, `
		SELECT `+appliedCouponColumns+`
		FROM applied_coupons
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Applied coupon not found")
	}
	return &ac, nil
}

func (r *couponRepository) ListActiveByCustomer(ctx context.Context, customerID string) ([]*coupon.AppliedCoupon, error) {
	applied := []*coupon.AppliedCoupon{}
	err := r.db.Querier(ctx).SelectContext(ctx, &applied, `
		SELECT `+appliedCouponColumns+`
		FROM applied_coupons
		WHERE customer_id = $1 AND tenant_id = $2 AND status != $3
		  AND applied_coupon_status = $4
		ORDER BY created_at, id`,
		customerID, types.GetTenantID(ctx), types.StatusDeleted,
		types.AppliedCouponStatusActive)
	if err != nil {
		return nil, wrapErr(err, "Failed to list applied coupons")
	}
	return applied, nil
}

func (r *couponRepository) ListByCustomerAndCoupon(ctx context.Context, customerID, couponID string) ([]*coupon.AppliedCoupon, error) {
	applied := []*coupon.AppliedCoupon{}
	err := r.db.Querier(ctx).SelectContext(ctx, &applied, `
		SELECT `+appliedCouponColumns+`
		FROM applied_coupons
		WHERE customer_id = $1 AND coupon_id = $2 AND tenant_id = $3 AND status != $4
		ORDER BY created_at, id`,
		customerID, couponID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list applied coupons")
	}
	return applied, nil
}

func (r *couponRepository) UpdateApplied(ctx context.Context, ac *coupon.AppliedCoupon) error {
	query := `
		UPDATE applied_coupons SET
			applied_coupon_status = :applied_coupon_status,
			frequency_duration_remaining = :frequency_duration_remaining,
			terminated_at = :terminated_at,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, ac)
	return wrapErr(err, "Failed to update applied coupon")
}
