package v1

import (
	"net/http"

	"github.com/billix/billix/internal/domain/customer"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	service service.CustomerService
	log     *logger.Logger
}

func NewCustomerHandler(service service.CustomerService, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{service: service, log: log}
}

// @Summary Create a customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param customer body customer.Customer true "Customer"
// @Success 201 {object} customer.Customer
// @Router /customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var cust customer.Customer
	if err := c.ShouldBindJSON(&cust); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CreateCustomer(c.Request.Context(), &cust); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cust)
}

// @Summary Get a customer
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} customer.Customer
// @Router /customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	resp, err := h.service.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Look a customer up by external ID
// @Tags Customers
// @Produce json
// @Param external_id path string true "External ID"
// @Success 200 {object} customer.Customer
// @Router /customers/external/{external_id} [get]
func (h *CustomerHandler) GetCustomerByExternalID(c *gin.Context) {
	resp, err := h.service.GetCustomerByExternalID(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List customers
// @Tags Customers
// @Produce json
// @Param filter query types.Filter false "Filter"
// @Success 200 {object} types.ListResponse[customer.Customer]
// @Router /customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	var filter types.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	customers, total, err := h.service.ListCustomers(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": customers, "total": total})
}

// @Summary Update a customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param customer body customer.Customer true "Customer"
// @Success 200 {object} customer.Customer
// @Router /customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	existing, err := h.service.GetCustomer(c.Request.Context(), c.Param("id"))
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

	if err := h.service.UpdateCustomer(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, existing)
}

// @Summary Delete a customer
// @Tags Customers
// @Param id path string true "Customer ID"
// @Success 204
// @Router /customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.service.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
