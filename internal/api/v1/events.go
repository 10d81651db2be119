package v1

import (
	"net/http"

	"github.com/billix/billix/internal/api/dto"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	eventService service.EventService
	usageService service.UsageService
	log          *logger.Logger
}

func NewEventsHandler(
	eventService service.EventService,
	usageService service.UsageService,
	log *logger.Logger,
) *EventsHandler {
	return &EventsHandler{
		eventService: eventService,
		usageService: usageService,
		log:          log,
	}
}

// @Summary Ingest a usage event
// @Tags Events
// @Accept json
// @Produce json
// @Param event body dto.IngestEventRequest true "Event"
// @Success 202 {object} dto.IngestEventResponse
// @Router /events [post]
func (h *EventsHandler) IngestEvent(c *gin.Context) {
	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	result, err := h.eventService.IngestEvent(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestEventResponse{
		Ingested:   result.Ingested,
		Duplicates: result.Duplicates,
	})
}

// @Summary Ingest a batch of usage events
// @Tags Events
// @Accept json
// @Produce json
// @Param events body dto.BulkIngestEventRequest true "Events"
// @Success 202 {object} dto.IngestEventResponse
// @Router /events/batch [post]
func (h *EventsHandler) IngestBatch(c *gin.Context) {
	var req dto.BulkIngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	result, err := h.eventService.IngestBatch(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestEventResponse{
		Ingested:   result.Ingested,
		Duplicates: result.Duplicates,
	})
}

// @Summary Query raw events
// @Tags Events
// @Accept json
// @Produce json
// @Param query body dto.GetEventsRequest true "Query"
// @Success 200 {object} dto.GetEventsResponse
// @Router /events/query [post]
func (h *EventsHandler) GetEvents(c *gin.Context) {
	var req dto.GetEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.eventService.GetEvents(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Aggregate usage over raw events
// @Tags Events
// @Produce json
// @Param filter query dto.GetUsageRequest false "Filter"
// @Success 200 {object} dto.GetUsageResponse
// @Router /events/usage [get]
func (h *EventsHandler) GetUsage(c *gin.Context) {
	var req dto.GetUsageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.usageService.GetUsage(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Aggregate usage through a metric's configuration
// @Tags Events
// @Produce json
// @Param filter query dto.GetUsageByMetricRequest false "Filter"
// @Success 200 {object} dto.GetUsageResponse
// @Router /events/usage/metric [get]
func (h *EventsHandler) GetUsageByMetric(c *gin.Context) {
	var req dto.GetUsageByMetricRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.usageService.GetUsageByMetric(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
