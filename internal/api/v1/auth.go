package v1

import (
	"net/http"
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service service.AuthService
	log     *logger.Logger
}

func NewAuthHandler(service service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{service: service, log: log}
}

type createAPIKeyRequest struct {
	Name      string     `json:"name" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type createAPIKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Key       string     `json:"key"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// @Summary Create an API key
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} createAPIKeyResponse
// @Router /api_keys [post]
func (h *AuthHandler) CreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	key, plaintext, err := h.service.CreateAPIKey(c.Request.Context(), req.Name, req.ExpiresAt)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, createAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Key:       plaintext,
		ExpiresAt: key.ExpiresAt,
	})
}

// @Summary List API keys
// @Tags Auth
// @Produce json
// @Router /api_keys [get]
func (h *AuthHandler) ListAPIKeys(c *gin.Context) {
	keys, err := h.service.ListAPIKeys(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": keys})
}

// @Summary Revoke an API key
// @Tags Auth
// @Param id path string true "API key ID"
// @Success 204
// @Router /api_keys/{id} [delete]
func (h *AuthHandler) RevokeAPIKey(c *gin.Context) {
	if err := h.service.RevokeAPIKey(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type portalTokenRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
}

// @Summary Issue a customer portal token
// @Tags Auth
// @Accept json
// @Produce json
// @Router /portal_tokens [post]
func (h *AuthHandler) IssuePortalToken(c *gin.Context) {
	var req portalTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	token, err := h.service.IssuePortalToken(c.Request.Context(), req.CustomerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}
