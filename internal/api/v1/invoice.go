package v1

import (
	"net/http"

	"github.com/billix/billix/internal/api/dto"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type InvoiceHandler struct {
	service     service.InvoiceService
	subService  service.SubscriptionService
	log         *logger.Logger
}

func NewInvoiceHandler(
	service service.InvoiceService,
	subService service.SubscriptionService,
	log *logger.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{service: service, subService: subService, log: log}
}

// @Summary Create a one-off invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice body dto.CreateOneOffInvoiceRequest true "Invoice"
// @Success 201 {object} dto.InvoiceResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateOneOffInvoice(c *gin.Context) {
	var req dto.CreateOneOffInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	inv, err := h.service.GenerateOneOff(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewInvoiceResponse(inv))
}

// @Summary Preview the next invoice of a subscription
// @Tags Invoices
// @Produce json
// @Param subscription_id query string true "Subscription ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/preview [get]
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	subID := c.Query("subscription_id")
	if subID == "" {
		c.Error(ierr.NewError("subscription_id is required").
			WithHint("subscription_id query parameter is required").
			Mark(ierr.ErrValidation))
		return
	}

	sub, err := h.subService.GetSubscription(c.Request.Context(), subID)
	if err != nil {
		c.Error(err)
		return
	}

	inv, err := h.service.PreviewSubscriptionInvoice(
		c.Request.Context(), sub, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// @Summary Get an invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	inv, err := h.service.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param filter query dto.ListInvoicesRequest false "Filter"
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var req dto.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListInvoices(c.Request.Context(), req.ToFilter())
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]*dto.InvoiceResponse, 0, len(resp.Items))
	for _, inv := range resp.Items {
		out = append(out, dto.NewInvoiceResponse(inv))
	}

	c.JSON(http.StatusOK, gin.H{"items": out, "pagination": resp.Pagination})
}

// @Summary Finalize a draft invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id}/finalize [post]
func (h *InvoiceHandler) FinalizeInvoice(c *gin.Context) {
	inv, err := h.service.FinalizeInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// @Summary Mark an invoice paid out of band
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id}/pay [post]
func (h *InvoiceHandler) PayInvoice(c *gin.Context) {
	inv, err := h.service.PayInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

// @Summary Void an invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id}/void [post]
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	inv, err := h.service.VoidInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}

type recordSettlementRequest struct {
	SourceType types.SettlementSourceType `json:"source_type" binding:"required"`
	SourceID   string                     `json:"source_id"`
	Amount     decimal.Decimal            `json:"amount" binding:"required"`
}

// @Summary Record a settlement against a finalized invoice
// @Tags Invoices
// @Accept json
// @Param id path string true "Invoice ID"
// @Success 204
// @Router /invoices/{id}/settlements [post]
func (h *InvoiceHandler) RecordSettlement(c *gin.Context) {
	var req recordSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	err := h.service.RecordSettlement(
		c.Request.Context(), c.Param("id"), req.SourceType, req.SourceID, req.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
