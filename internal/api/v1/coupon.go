package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/coupon"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/gin-gonic/gin"
)

type CouponHandler struct {
	service service.CouponService
	log     *logger.Logger
}

func NewCouponHandler(service service.CouponService, log *logger.Logger) *CouponHandler {
	return &CouponHandler{service: service, log: log}
}

// @Summary Create a coupon
// @Tags Coupons
// @Accept json
// @Produce json
// @Param coupon body coupon.Coupon true "Coupon"
// @Success 201 {object} coupon.Coupon
// @Router /coupons [post]
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var cp coupon.Coupon
	if err := c.ShouldBindJSON(&cp); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateCoupon(c.Request.Context(), &cp); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cp)
}

// @Summary Get a coupon
// @Tags Coupons
// @Produce json
// @Param id path string true "Coupon ID"
// @Success 200 {object} coupon.Coupon
// @Router /coupons/{id} [get]
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	resp, err := h.service.GetCoupon(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type applyCouponRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Code       string `json:"code" binding:"required"`
}

// @Summary Apply a coupon to a customer
// @Tags Coupons
// @Accept json
// @Produce json
// @Success 201 {object} coupon.AppliedCoupon
// @Router /applied_coupons [post]
func (h *CouponHandler) ApplyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	applied, err := h.service.ApplyCoupon(c.Request.Context(), req.CustomerID, req.Code)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, applied)
}

// @Summary Terminate an applied coupon
// @Tags Coupons
// @Param id path string true "Applied coupon ID"
// @Success 204
// @Router /applied_coupons/{id} [delete]
func (h *CouponHandler) TerminateAppliedCoupon(c *gin.Context) {
	if err := h.service.TerminateAppliedCoupon(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List a customer's active applied coupons
// @Tags Coupons
// @Produce json
// @Param customer_id query string true "Customer ID"
// @Router /applied_coupons [get]
func (h *CouponHandler) ListActiveByCustomer(c *gin.Context) {
	customerID := c.Query("customer_id")
	if customerID == "" {
		c.Error(ierr.NewError("customer_id is required").
			WithHint("customer_id query parameter is required").
			Mark(ierr.ErrValidation))
		return
	}

	applied, err := h.service.ListActiveByCustomer(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": applied})
}
