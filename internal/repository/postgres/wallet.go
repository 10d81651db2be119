package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/wallet"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type walletRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewWalletRepository(db postgres.IClient, logger *logger.Logger) wallet.Repository {
	return &walletRepository{db: db, logger: logger}
}

const walletColumns = `
	id, customer_id, name, currency, credits_balance, rate_amount, wallet_status,
	priority, expiration_at, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const walletTransactionColumns = `
	id, wallet_id, type, credit_amount, credit_balance_before, credit_balance_after,
	transaction_status, transaction_reason, source, reference_type, reference_id,
	idempotency_key, description, transaction_date, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *walletRepository) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (
			id, customer_id, name, currency, credits_balance, rate_amount, wallet_status,
			priority, expiration_at, metadata,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :name, :currency, :credits_balance, :rate_amount, :wallet_status,
			:priority, :expiration_at, :metadata,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, w)
	return wrapErr(err, "Failed to create wallet")
}

func (r *walletRepository) GetWalletByID(ctx context.Context, id string) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := r.db.Querier(ctx).GetContext(ctx, &w, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Wallet not found")
	}
	return &w, nil
}

func (r *walletRepository) GetWalletsByCustomer(ctx context.Context, customerID string) ([]*wallet.Wallet, error) {
	wallets := []*wallet.Wallet{}
	err := r.db.Querier(ctx).SelectContext(ctx, &wallets, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE customer_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY priority ASC NULLS LAST, credits_balance DESC, created_at`,
		customerID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list customer wallets")
	}
	return wallets, nil
}

func (r *walletRepository) UpdateWalletStatus(ctx context.Context, id string, status types.WalletStatus) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE wallets SET wallet_status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		status, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to update wallet status")
}

func (r *walletRepository) UpdateWalletBalance(ctx context.Context, id string, creditsBalance decimal.Decimal) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE wallets SET credits_balance = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		creditsBalance, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to update wallet balance")
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *wallet.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (
			id, wallet_id, type, credit_amount, credit_balance_before, credit_balance_after,
			transaction_status, transaction_reason, source, reference_type, reference_id,
			idempotency_key, description, transaction_date, metadata,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :wallet_id, :type, :credit_amount, :credit_balance_before, :credit_balance_after,
			:transaction_status, :transaction_reason, :source, :reference_type, :reference_id,
			:idempotency_key, :description, :transaction_date, :metadata,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, tx)
	return wrapErr(err, "Failed to create wallet transaction, idempotency key may already exist")
}

func (r *walletRepository) GetTransactionByID(ctx context.Context, id string) (*wallet.Transaction, error) {
	var tx wallet.Transaction
	err := r.db.Querier(ctx).GetContext(ctx, &tx, `
		SELECT `+walletTransactionColumns+`
		FROM wallet_transactions
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Wallet transaction not found")
	}
	return &tx, nil
}

func (r *walletRepository) GetTransactionByIdempotencyKey(ctx context.Context, walletID, key string) (*wallet.Transaction, error) {
	var tx wallet.Transaction
	err := r.db.Querier(ctx).GetContext(ctx, &tx, `
		SELECT `+walletTransactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1 AND idempotency_key = $2 AND tenant_id = $3 AND status != $4`,
		walletID, key, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Wallet transaction not found")
	}
	return &tx, nil
}

func (r *walletRepository) UpdateTransactionStatus(ctx context.Context, id string, status types.TransactionStatus) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE wallet_transactions SET transaction_status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		status, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to update wallet transaction status")
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID string, filter *types.Filter) ([]*wallet.Transaction, error) {
	if filter == nil {
		filter = &types.Filter{}
	}
	txs := []*wallet.Transaction{}
	err := r.db.Querier(ctx).SelectContext(ctx, &txs, `
		SELECT `+walletTransactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY transaction_date DESC, id DESC
		LIMIT $4 OFFSET $5`,
		walletID, types.GetTenantID(ctx), types.StatusDeleted,
		filter.GetLimit(), filter.GetSkip())
	if err != nil {
		return nil, wrapErr(err, "Failed to list wallet transactions")
	}
	return txs, nil
}

func (r *walletRepository) ListTransactionsByReference(ctx context.Context, referenceType, referenceID string) ([]*wallet.Transaction, error) {
	txs := []*wallet.Transaction{}
	err := r.db.Querier(ctx).SelectContext(ctx, &txs, `
		SELECT `+walletTransactionColumns+`
		FROM wallet_transactions
		WHERE reference_type = $1 AND reference_id = $2 AND tenant_id = $3 AND status != $4
		ORDER BY transaction_date, id`,
		referenceType, referenceID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list wallet transactions by reference")
	}
	return txs, nil
}
