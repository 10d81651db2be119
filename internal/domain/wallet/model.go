package wallet

import (
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Wallet holds prepaid credits for a customer in a single currency. The
// cached CreditsBalance column is derived from the transaction ledger, which
// is the source of truth. RateAmount translates credits to currency units.
type Wallet struct {
	ID             string             `db:"id" json:"id"`
	CustomerID     string             `db:"customer_id" json:"customer_id"`
	Name           string             `db:"name" json:"name"`
	Currency       string             `db:"currency" json:"currency"`
	CreditsBalance decimal.Decimal    `db:"credits_balance" json:"credits_balance"`
	RateAmount     decimal.Decimal    `db:"rate_amount" json:"rate_amount"`
	WalletStatus   types.WalletStatus `db:"wallet_status" json:"wallet_status"`
	// Priority orders wallets during invoice draws, lower first. Nil
	// sorts after every explicit priority.
	Priority     *int           `db:"priority" json:"priority,omitempty"`
	ExpirationAt *time.Time     `db:"expiration_at" json:"expiration_at,omitempty"`
	Metadata     types.Metadata `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

// IsActive reports whether the wallet can participate in draws at t
func (w *Wallet) IsActive(t time.Time) bool {
	if w.WalletStatus != types.WalletStatusActive || w.Status != types.StatusPublished {
		return false
	}
	if w.ExpirationAt != nil && !w.ExpirationAt.After(t) {
		return false
	}
	return true
}

// CurrencyAmount converts a credit amount to currency units
func (w *Wallet) CurrencyAmount(credits decimal.Decimal) decimal.Decimal {
	return credits.Mul(w.RateAmount)
}

// Transaction is one immutable ledger entry. Credit balance snapshots are
// recorded on both sides of the mutation for audit.
type Transaction struct {
	ID                  string                  `db:"id" json:"id"`
	WalletID            string                  `db:"wallet_id" json:"wallet_id"`
	Type                types.TransactionType   `db:"type" json:"type"`
	CreditAmount        decimal.Decimal         `db:"credit_amount" json:"credit_amount"`
	CreditBalanceBefore decimal.Decimal         `db:"credit_balance_before" json:"credit_balance_before"`
	CreditBalanceAfter  decimal.Decimal         `db:"credit_balance_after" json:"credit_balance_after"`
	TransactionStatus   types.TransactionStatus `db:"transaction_status" json:"transaction_status"`
	TransactionReason   types.TransactionReason `db:"transaction_reason" json:"transaction_reason"`
	Source              types.TransactionSource `db:"source" json:"source"`
	ReferenceType       string                  `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID         string                  `db:"reference_id" json:"reference_id,omitempty"`
	IdempotencyKey      string                  `db:"idempotency_key" json:"idempotency_key,omitempty"`
	Description         string                  `db:"description" json:"description,omitempty"`
	TransactionDate     time.Time               `db:"transaction_date" json:"transaction_date"`
	Metadata            types.Metadata          `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

// Operation describes a requested wallet mutation
type Operation struct {
	WalletID          string
	Type              types.TransactionType
	CreditAmount      decimal.Decimal
	TransactionReason types.TransactionReason
	Source            types.TransactionSource
	ReferenceType     string
	ReferenceID       string
	IdempotencyKey    string
	Description       string
	Metadata          types.Metadata
}

func (o *Operation) Validate() error {
	if o.WalletID == "" {
		return ierr.NewError("wallet_id is required").
			WithHint("Wallet ID is required").
			Mark(ierr.ErrValidation)
	}
	if !o.CreditAmount.IsPositive() {
		return ierr.NewError("credit_amount must be positive").
			WithHint("Wallet operations require a positive credit amount").
			WithReportableDetails(map[string]interface{}{
				"credit_amount": o.CreditAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	switch o.Type {
	case types.TransactionTypeInbound, types.TransactionTypeOutbound:
	default:
		return ierr.NewError("invalid transaction type").
			WithHint("Transaction type must be inbound or outbound").
			Mark(ierr.ErrValidation)
	}
	return nil
}
