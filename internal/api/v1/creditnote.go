package v1

import (
	"net/http"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreditNoteHandler struct {
	service service.CreditNoteService
	log     *logger.Logger
}

func NewCreditNoteHandler(service service.CreditNoteService, log *logger.Logger) *CreditNoteHandler {
	return &CreditNoteHandler{service: service, log: log}
}

type createCreditNoteRequest struct {
	InvoiceID string                          `json:"invoice_id" binding:"required"`
	Type      types.CreditNoteType            `json:"type" binding:"required"`
	Reason    string                          `json:"reason"`
	Items     []service.CreateCreditNoteItem  `json:"items" binding:"required,min=1"`
}

// @Summary Issue a credit note against a finalized invoice
// @Tags CreditNotes
// @Accept json
// @Produce json
// @Success 201 {object} creditnote.CreditNote
// @Router /credit_notes [post]
func (h *CreditNoteHandler) CreateCreditNote(c *gin.Context) {
	var req createCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	cn, err := h.service.CreateCreditNote(
		c.Request.Context(), req.InvoiceID, req.Type, req.Items, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cn)
}

type createOffsetRequest struct {
	InvoiceID string          `json:"invoice_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason"`
}

// @Summary Record a progressive-billing offset credit
// @Tags CreditNotes
// @Accept json
// @Produce json
// @Success 201 {object} creditnote.CreditNote
// @Router /credit_notes/offsets [post]
func (h *CreditNoteHandler) CreateOffset(c *gin.Context) {
	var req createOffsetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	cn, err := h.service.CreateOffset(c.Request.Context(), req.InvoiceID, req.Amount, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cn)
}

// @Summary Finalize a draft credit note
// @Tags CreditNotes
// @Produce json
// @Param id path string true "Credit note ID"
// @Router /credit_notes/{id}/finalize [post]
func (h *CreditNoteHandler) FinalizeCreditNote(c *gin.Context) {
	if err := h.service.FinalizeCreditNote(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	cn, err := h.service.GetCreditNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cn)
}

// @Summary Get a credit note
// @Tags CreditNotes
// @Produce json
// @Param id path string true "Credit note ID"
// @Router /credit_notes/{id} [get]
func (h *CreditNoteHandler) GetCreditNote(c *gin.Context) {
	cn, err := h.service.GetCreditNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cn)
}

// @Summary List credit notes of an invoice
// @Tags CreditNotes
// @Produce json
// @Param invoice_id query string true "Invoice ID"
// @Router /credit_notes [get]
func (h *CreditNoteHandler) ListByInvoice(c *gin.Context) {
	invoiceID := c.Query("invoice_id")
	if invoiceID == "" {
		c.Error(ierr.NewError("invoice_id is required").
			WithHint("invoice_id query parameter is required").
			Mark(ierr.ErrValidation))
		return
	}

	notes, err := h.service.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": notes})
}
