package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/alert"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	service service.AlertService
	log     *logger.Logger
}

func NewAlertHandler(service service.AlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{service: service, log: log}
}

// @Summary Create a usage alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param alert body alert.UsageAlert true "Alert"
// @Success 201 {object} alert.UsageAlert
// @Router /usage_alerts [post]
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var a alert.UsageAlert
	if err := c.ShouldBindJSON(&a); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateAlert(c.Request.Context(), &a); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, a)
}

// @Summary Get a usage alert
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} alert.UsageAlert
// @Router /usage_alerts/{id} [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	a, err := h.service.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// @Summary Deactivate a usage alert
// @Tags Alerts
// @Param id path string true "Alert ID"
// @Success 204
// @Router /usage_alerts/{id} [delete]
func (h *AlertHandler) DeactivateAlert(c *gin.Context) {
	if err := h.service.DeactivateAlert(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List an alert's trigger history
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Router /usage_alerts/{id}/triggers [get]
func (h *AlertHandler) ListTriggers(c *gin.Context) {
	triggers, err := h.service.ListTriggers(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": triggers})
}
