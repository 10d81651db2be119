package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/webhook"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	repo webhook.Repository
	log  *logger.Logger
}

func NewWebhookHandler(repo webhook.Repository, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{repo: repo, log: log}
}

// createEndpointResponse carries the signing secret exactly once
type createEndpointResponse struct {
	*webhook.Endpoint
	Secret string `json:"secret"`
}

// @Summary Register a webhook endpoint
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param endpoint body webhook.Endpoint true "Endpoint"
// @Success 201 {object} createEndpointResponse
// @Router /webhook_endpoints [post]
func (h *WebhookHandler) CreateEndpoint(c *gin.Context) {
	var e webhook.Endpoint
	if err := c.ShouldBindJSON(&e); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := e.Validate(); err != nil {
		c.Error(err)
		return
	}

	e.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_ENDPOINT)
	if e.Secret == "" {
		e.Secret = types.GenerateUUID()
	}
	if e.EndpointStatus == "" {
		e.EndpointStatus = types.WebhookEndpointStatusActive
	}
	e.BaseModel = types.GetDefaultBaseModel(c.Request.Context())

	if err := h.repo.CreateEndpoint(c.Request.Context(), &e); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, createEndpointResponse{Endpoint: &e, Secret: e.Secret})
}

// @Summary Get a webhook endpoint
// @Tags Webhooks
// @Produce json
// @Param id path string true "Endpoint ID"
// @Success 200 {object} webhook.Endpoint
// @Router /webhook_endpoints/{id} [get]
func (h *WebhookHandler) GetEndpoint(c *gin.Context) {
	e, err := h.repo.GetEndpoint(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, e)
}

// @Summary List webhook endpoints
// @Tags Webhooks
// @Produce json
// @Router /webhook_endpoints [get]
func (h *WebhookHandler) ListEndpoints(c *gin.Context) {
	endpoints, err := h.repo.ListEndpoints(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": endpoints})
}

// @Summary Update a webhook endpoint
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param id path string true "Endpoint ID"
// @Success 200 {object} webhook.Endpoint
// @Router /webhook_endpoints/{id} [put]
func (h *WebhookHandler) UpdateEndpoint(c *gin.Context) {
	existing, err := h.repo.GetEndpoint(c.Request.Context(), c.Param("id"))
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
	if err := existing.Validate(); err != nil {
		c.Error(err)
		return
	}

	if err := h.repo.UpdateEndpoint(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, existing)
}

// @Summary Disable a webhook endpoint
// @Tags Webhooks
// @Param id path string true "Endpoint ID"
// @Success 204
// @Router /webhook_endpoints/{id} [delete]
func (h *WebhookHandler) DisableEndpoint(c *gin.Context) {
	existing, err := h.repo.GetEndpoint(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	existing.EndpointStatus = types.WebhookEndpointStatusDisabled
	if err := h.repo.UpdateEndpoint(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List delivery attempts of a webhook
// @Tags Webhooks
// @Produce json
// @Param id path string true "Webhook ID"
// @Router /webhooks/{id}/attempts [get]
func (h *WebhookHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.repo.ListAttempts(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": attempts})
}
