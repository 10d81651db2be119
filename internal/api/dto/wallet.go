package dto

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/wallet"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/validator"
	"github.com/shopspring/decimal"
)

type CreateWalletRequest struct {
	CustomerID     string          `json:"customer_id" validate:"required" binding:"required"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	RateAmount     decimal.Decimal `json:"rate_amount"`
	InitialCredits decimal.Decimal `json:"initial_credits"`
	Priority       *int            `json:"priority,omitempty"`
	ExpirationAt   *time.Time      `json:"expiration_at,omitempty"`
	Metadata       types.Metadata  `json:"metadata,omitempty"`
}

func (r *CreateWalletRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return nil
}

func (r *CreateWalletRequest) ToWallet(ctx context.Context) *wallet.Wallet {
	rate := r.RateAmount
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	return &wallet.Wallet{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET),
		CustomerID:     r.CustomerID,
		Name:           r.Name,
		Currency:       r.Currency,
		CreditsBalance: decimal.Zero,
		RateAmount:     rate,
		WalletStatus:   types.WalletStatusActive,
		Priority:       r.Priority,
		ExpirationAt:   r.ExpirationAt,
		Metadata:       r.Metadata,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

type TopUpWalletRequest struct {
	Credits        decimal.Decimal         `json:"credits" validate:"required"`
	Source         types.TransactionSource `json:"source"`
	Reason         types.TransactionReason `json:"reason"`
	IdempotencyKey string                  `json:"idempotency_key"`
	Description    string                  `json:"description"`
}

type WalletResponse struct {
	ID             string             `json:"id"`
	CustomerID     string             `json:"customer_id"`
	Name           string             `json:"name"`
	Currency       string             `json:"currency"`
	CreditsBalance string             `json:"credits_balance"`
	RateAmount     string             `json:"rate_amount"`
	WalletStatus   types.WalletStatus `json:"wallet_status"`
	Priority       *int               `json:"priority,omitempty"`
	ExpirationAt   *time.Time         `json:"expiration_at,omitempty"`
}

func NewWalletResponse(w *wallet.Wallet) *WalletResponse {
	return &WalletResponse{
		ID:             w.ID,
		CustomerID:     w.CustomerID,
		Name:           w.Name,
		Currency:       w.Currency,
		CreditsBalance: w.CreditsBalance.StringFixed(4),
		RateAmount:     w.RateAmount.StringFixed(4),
		WalletStatus:   w.WalletStatus,
		Priority:       w.Priority,
		ExpirationAt:   w.ExpirationAt,
	}
}
