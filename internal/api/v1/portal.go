package v1

import (
	"net/http"

	"github.com/billix/billix/internal/api/dto"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

// PortalHandler serves the customer self-service surface. Every route is
// scoped to the customer bound to the portal token.
type PortalHandler struct {
	customerService service.CustomerService
	invoiceService  service.InvoiceService
	log             *logger.Logger
}

func NewPortalHandler(
	customerService service.CustomerService,
	invoiceService service.InvoiceService,
	log *logger.Logger,
) *PortalHandler {
	return &PortalHandler{
		customerService: customerService,
		invoiceService:  invoiceService,
		log:             log,
	}
}

// @Summary Get the portal customer's profile
// @Tags Portal
// @Produce json
// @Router /portal/customer [get]
func (h *PortalHandler) GetCustomer(c *gin.Context) {
	customerID := types.GetPortalCustomerID(c.Request.Context())

	resp, err := h.customerService.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List the portal customer's invoices
// @Tags Portal
// @Produce json
// @Router /portal/invoices [get]
func (h *PortalHandler) ListInvoices(c *gin.Context) {
	var req dto.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	req.CustomerID = types.GetPortalCustomerID(c.Request.Context())

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), req.ToFilter())
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]*dto.InvoiceResponse, 0, len(resp.Items))
	for _, inv := range resp.Items {
		out = append(out, dto.NewInvoiceResponse(inv))
	}

	c.JSON(http.StatusOK, gin.H{"items": out, "pagination": resp.Pagination})
}
