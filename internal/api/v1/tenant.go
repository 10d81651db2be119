package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/tenant"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	service service.TenantService
	log     *logger.Logger
}

func NewTenantHandler(service service.TenantService, log *logger.Logger) *TenantHandler {
	return &TenantHandler{service: service, log: log}
}

// @Summary Create a tenant
// @Tags Tenants
// @Accept json
// @Produce json
// @Param tenant body tenant.Tenant true "Tenant"
// @Success 201 {object} tenant.Tenant
// @Router /tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var t tenant.Tenant
	if err := c.ShouldBindJSON(&t); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateTenant(c.Request.Context(), &t); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

// @Summary Get a tenant
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} tenant.Tenant
// @Router /tenants/{id} [get]
func (h *TenantHandler) GetTenant(c *gin.Context) {
	t, err := h.service.GetTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// @Summary Update a tenant
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} tenant.Tenant
// @Router /tenants/{id} [put]
func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	existing, err := h.service.GetTenant(c.Request.Context(), c.Param("id"))
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

	if err := h.service.UpdateTenant(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, existing)
}
