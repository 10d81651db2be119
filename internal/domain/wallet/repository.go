package wallet

import (
	"context"

	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateWallet(ctx context.Context, w *Wallet) error
	GetWalletByID(ctx context.Context, id string) (*Wallet, error)
	// GetWalletsByCustomer returns the customer's wallets ordered by
	// priority ascending then balance descending, the draw order
	GetWalletsByCustomer(ctx context.Context, customerID string) ([]*Wallet, error)
	UpdateWalletStatus(ctx context.Context, id string, status types.WalletStatus) error
	UpdateWalletBalance(ctx context.Context, id string, creditsBalance decimal.Decimal) error

	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*Transaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, walletID, key string) (*Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status types.TransactionStatus) error
	ListTransactions(ctx context.Context, walletID string, filter *types.Filter) ([]*Transaction, error)
	// ListTransactionsByReference finds ledger rows tied to an external
	// object, e.g. all pending draws for an invoice
	ListTransactionsByReference(ctx context.Context, referenceType, referenceID string) ([]*Transaction, error)
}
