package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/subscription"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, log: log}
}

// @Summary Create a subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body subscription.Subscription true "Subscription"
// @Success 201 {object} subscription.Subscription
// @Router /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var sub subscription.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateSubscription(c.Request.Context(), &sub); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// @Summary Get a subscription
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} subscription.Subscription
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	resp, err := h.service.GetSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List subscriptions
// @Tags Subscriptions
// @Produce json
// @Param filter query types.Filter false "Filter"
// @Router /subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	var filter types.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	subs, total, err := h.service.ListSubscriptions(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": subs, "total": total})
}

func (h *SubscriptionHandler) action(c *gin.Context, fn func(ctx *gin.Context, id string) error) {
	if err := fn(c, c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.GetSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Activate a pending subscription
// @Tags Subscriptions
// @Param id path string true "Subscription ID"
// @Router /subscriptions/{id}/activate [post]
func (h *SubscriptionHandler) ActivateSubscription(c *gin.Context) {
	h.action(c, func(ctx *gin.Context, id string) error {
		return h.service.ActivateSubscription(ctx.Request.Context(), id)
	})
}

// @Summary Pause a subscription
// @Tags Subscriptions
// @Param id path string true "Subscription ID"
// @Router /subscriptions/{id}/pause [post]
func (h *SubscriptionHandler) PauseSubscription(c *gin.Context) {
	h.action(c, func(ctx *gin.Context, id string) error {
		return h.service.PauseSubscription(ctx.Request.Context(), id)
	})
}

// @Summary Resume a paused subscription
// @Tags Subscriptions
// @Param id path string true "Subscription ID"
// @Router /subscriptions/{id}/resume [post]
func (h *SubscriptionHandler) ResumeSubscription(c *gin.Context) {
	h.action(c, func(ctx *gin.Context, id string) error {
		return h.service.ResumeSubscription(ctx.Request.Context(), id)
	})
}

// @Summary Cancel at end of the current period
// @Tags Subscriptions
// @Param id path string true "Subscription ID"
// @Router /subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	h.action(c, func(ctx *gin.Context, id string) error {
		return h.service.CancelSubscription(ctx.Request.Context(), id)
	})
}

// @Summary Terminate immediately
// @Tags Subscriptions
// @Param id path string true "Subscription ID"
// @Router /subscriptions/{id}/terminate [post]
func (h *SubscriptionHandler) TerminateSubscription(c *gin.Context) {
	h.action(c, func(ctx *gin.Context, id string) error {
		return h.service.TerminateSubscription(ctx.Request.Context(), id)
	})
}
