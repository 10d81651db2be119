package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/plan"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	service service.PlanService
	log     *logger.Logger
}

func NewPlanHandler(service service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{service: service, log: log}
}

type createPlanRequest struct {
	plan.Plan
	Charges []*charge.Charge `json:"charges"`
}

// @Summary Create a plan with its charges
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan body createPlanRequest true "Plan"
// @Success 201 {object} plan.Plan
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreatePlan(c.Request.Context(), &req.Plan, req.Charges); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, req.Plan)
}

// @Summary Get a plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} plan.Plan
// @Router /plans/{id} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	resp, err := h.service.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List plans
// @Tags Plans
// @Produce json
// @Param filter query types.Filter false "Filter"
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var filter types.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	plans, total, err := h.service.ListPlans(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": plans, "total": total})
}

// @Summary Update a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Router /plans/{id} [put]
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	existing, err := h.service.GetPlan(c.Request.Context(), c.Param("id"))
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

	if err := h.service.UpdatePlan(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, existing)
}

// @Summary Delete a plan
// @Tags Plans
// @Param id path string true "Plan ID"
// @Success 204
// @Router /plans/{id} [delete]
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	if err := h.service.DeletePlan(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Attach a charge to a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param charge body charge.Charge true "Charge"
// @Success 201 {object} charge.Charge
// @Router /plans/{id}/charges [post]
func (h *PlanHandler) AddCharge(c *gin.Context) {
	var ch charge.Charge
	if err := c.ShouldBindJSON(&ch); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.AddCharge(c.Request.Context(), c.Param("id"), &ch); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, ch)
}

// @Summary List a plan's charges
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Router /plans/{id}/charges [get]
func (h *PlanHandler) GetCharges(c *gin.Context) {
	charges, err := h.service.GetCharges(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": charges})
}

// @Summary Detach a charge
// @Tags Plans
// @Param id path string true "Charge ID"
// @Success 204
// @Router /charges/{id} [delete]
func (h *PlanHandler) RemoveCharge(c *gin.Context) {
	if err := h.service.RemoveCharge(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
