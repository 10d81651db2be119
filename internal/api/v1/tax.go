package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/tax"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	service service.TaxService
	log     *logger.Logger
}

func NewTaxHandler(service service.TaxService, log *logger.Logger) *TaxHandler {
	return &TaxHandler{service: service, log: log}
}

// @Summary Create a tax
// @Tags Taxes
// @Accept json
// @Produce json
// @Param tax body tax.Tax true "Tax"
// @Success 201 {object} tax.Tax
// @Router /taxes [post]
func (h *TaxHandler) CreateTax(c *gin.Context) {
	var t tax.Tax
	if err := c.ShouldBindJSON(&t); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateTax(c.Request.Context(), &t); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

// @Summary Get a tax
// @Tags Taxes
// @Produce json
// @Param id path string true "Tax ID"
// @Success 200 {object} tax.Tax
// @Router /taxes/{id} [get]
func (h *TaxHandler) GetTax(c *gin.Context) {
	resp, err := h.service.GetTax(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type applyTaxRequest struct {
	TaxID       string            `json:"tax_id" binding:"required"`
	TaxableType types.TaxableType `json:"taxable_type" binding:"required"`
	TaxableID   string            `json:"taxable_id" binding:"required"`
}

// @Summary Apply a tax to a customer or charge
// @Tags Taxes
// @Accept json
// @Produce json
// @Success 201 {object} tax.AppliedTax
// @Router /applied_taxes [post]
func (h *TaxHandler) ApplyTax(c *gin.Context) {
	var req applyTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	applied, err := h.service.ApplyTax(c.Request.Context(), req.TaxID, req.TaxableType, req.TaxableID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, applied)
}

// @Summary Remove an applied tax
// @Tags Taxes
// @Param id path string true "Applied tax ID"
// @Success 204
// @Router /applied_taxes/{id} [delete]
func (h *TaxHandler) RemoveAppliedTax(c *gin.Context) {
	if err := h.service.RemoveAppliedTax(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List applied taxes for a taxable object
// @Tags Taxes
// @Produce json
// @Param taxable_type query string true "Taxable type"
// @Param taxable_id query string true "Taxable ID"
// @Router /applied_taxes [get]
func (h *TaxHandler) ListApplied(c *gin.Context) {
	taxableType := types.TaxableType(c.Query("taxable_type"))
	taxableID := c.Query("taxable_id")
	if taxableType == "" || taxableID == "" {
		c.Error(ierr.NewError("taxable_type and taxable_id are required").
			WithHint("taxable_type and taxable_id query parameters are required").
			Mark(ierr.ErrValidation))
		return
	}

	applied, err := h.service.ListApplied(c.Request.Context(), taxableType, taxableID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": applied})
}
