package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/metric"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

type MetricHandler struct {
	service service.MetricService
	log     *logger.Logger
}

func NewMetricHandler(service service.MetricService, log *logger.Logger) *MetricHandler {
	return &MetricHandler{service: service, log: log}
}

// @Summary Create a billable metric
// @Tags Metrics
// @Accept json
// @Produce json
// @Param metric body metric.Metric true "Metric"
// @Success 201 {object} metric.Metric
// @Router /metrics [post]
func (h *MetricHandler) CreateMetric(c *gin.Context) {
	var m metric.Metric
	if err := c.ShouldBindJSON(&m); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateMetric(c.Request.Context(), &m); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// @Summary Get a billable metric
// @Tags Metrics
// @Produce json
// @Param id path string true "Metric ID"
// @Success 200 {object} metric.Metric
// @Router /metrics/{id} [get]
func (h *MetricHandler) GetMetric(c *gin.Context) {
	resp, err := h.service.GetMetric(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List billable metrics
// @Tags Metrics
// @Produce json
// @Param filter query types.Filter false "Filter"
// @Router /metrics [get]
func (h *MetricHandler) ListMetrics(c *gin.Context) {
	var filter types.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	metrics, total, err := h.service.ListMetrics(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": metrics, "total": total})
}

// @Summary Update a billable metric
// @Tags Metrics
// @Accept json
// @Produce json
// @Param id path string true "Metric ID"
// @Router /metrics/{id} [put]
func (h *MetricHandler) UpdateMetric(c *gin.Context) {
	existing, err := h.service.GetMetric(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	if err := c.ShouldBindJSON(existing); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	existing.ID = c.Param("id")

	if err := h.service.UpdateMetric(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, existing)
}

// @Summary Delete a billable metric
// @Tags Metrics
// @Param id path string true "Metric ID"
// @Success 204
// @Router /metrics/{id} [delete]
func (h *MetricHandler) DeleteMetric(c *gin.Context) {
	if err := h.service.DeleteMetric(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
