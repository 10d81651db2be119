package v1

import (
	"net/http"
	"time"

	"github.com/billix/billix/internal/domain/dunning"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/gin-gonic/gin"
)

type DunningHandler struct {
	service service.DunningService
	log     *logger.Logger
}

func NewDunningHandler(service service.DunningService, log *logger.Logger) *DunningHandler {
	return &DunningHandler{service: service, log: log}
}

// @Summary Create a dunning campaign
// @Tags Dunning
// @Accept json
// @Produce json
// @Param campaign body dunning.Campaign true "Campaign"
// @Success 201 {object} dunning.Campaign
// @Router /dunning_campaigns [post]
func (h *DunningHandler) CreateCampaign(c *gin.Context) {
	var campaign dunning.Campaign
	if err := c.ShouldBindJSON(&campaign); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateCampaign(c.Request.Context(), &campaign); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// @Summary Get a dunning campaign
// @Tags Dunning
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} dunning.Campaign
// @Router /dunning_campaigns/{id} [get]
func (h *DunningHandler) GetCampaign(c *gin.Context) {
	campaign, err := h.service.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// @Summary Get a payment request
// @Tags Dunning
// @Produce json
// @Param id path string true "Payment request ID"
// @Router /payment_requests/{id} [get]
func (h *DunningHandler) GetPaymentRequest(c *gin.Context) {
	pr, err := h.service.GetPaymentRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, pr)
}

// @Summary Run one collection attempt now
// @Tags Dunning
// @Produce json
// @Param id path string true "Payment request ID"
// @Router /payment_requests/{id}/retry [post]
func (h *DunningHandler) RetryPaymentRequest(c *gin.Context) {
	if err := h.service.ProcessAttempt(c.Request.Context(), c.Param("id"), time.Now().UTC()); err != nil {
		c.Error(err)
		return
	}

	pr, err := h.service.GetPaymentRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, pr)
}
