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

type WalletHandler struct {
	service service.WalletService
	log     *logger.Logger
}

func NewWalletHandler(service service.WalletService, log *logger.Logger) *WalletHandler {
	return &WalletHandler{service: service, log: log}
}

// @Summary Create a wallet
// @Tags Wallets
// @Accept json
// @Produce json
// @Param wallet body dto.CreateWalletRequest true "Wallet"
// @Success 201 {object} dto.WalletResponse
// @Router /wallets [post]
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	w, err := h.service.CreateWallet(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewWalletResponse(w))
}

// @Summary Get a wallet
// @Tags Wallets
// @Produce json
// @Param id path string true "Wallet ID"
// @Success 200 {object} dto.WalletResponse
// @Router /wallets/{id} [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	w, err := h.service.GetWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewWalletResponse(w))
}

// @Summary Top a wallet up
// @Tags Wallets
// @Accept json
// @Produce json
// @Param id path string true "Wallet ID"
// @Param topup body dto.TopUpWalletRequest true "Top-up"
// @Router /wallets/{id}/top_up [post]
func (h *WalletHandler) TopUpWallet(c *gin.Context) {
	var req dto.TopUpWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	txn, err := h.service.TopUp(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, txn)
}

// @Summary Terminate a wallet
// @Tags Wallets
// @Param id path string true "Wallet ID"
// @Success 204
// @Router /wallets/{id}/terminate [post]
func (h *WalletHandler) TerminateWallet(c *gin.Context) {
	if err := h.service.TerminateWallet(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List wallet transactions
// @Tags Wallets
// @Produce json
// @Param id path string true "Wallet ID"
// @Param filter query types.Filter false "Filter"
// @Router /wallets/{id}/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	var filter types.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	txns, err := h.service.ListTransactions(c.Request.Context(), c.Param("id"), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": txns})
}
