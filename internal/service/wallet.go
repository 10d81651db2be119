package service

import (
	"context"
	"time"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/wallet"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type WalletService interface {
	CreateWallet(ctx context.Context, req *dto.CreateWalletRequest) (*wallet.Wallet, error)
	GetWallet(ctx context.Context, id string) (*wallet.Wallet, error)
	TopUp(ctx context.Context, walletID string, req *dto.TopUpWalletRequest) (*wallet.Transaction, error)
	Debit(ctx context.Context, op *wallet.Operation) (*wallet.Transaction, error)
	TerminateWallet(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, walletID string, filter *types.Filter) ([]*wallet.Transaction, error)
}

type walletService struct {
	ServiceParams
}

func NewWalletService(params ServiceParams) WalletService {
	return &walletService{ServiceParams: params}
}

func (s *walletService) CreateWallet(ctx context.Context, req *dto.CreateWalletRequest) (*wallet.Wallet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cust, err := s.CustomerRepo.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if cust.Currency != req.Currency {
		return nil, ierr.NewError("wallet currency mismatch").
			WithHintf("Wallet currency %s does not match customer currency %s", req.Currency, cust.Currency).
			Mark(ierr.ErrValidation)
	}

	w := req.ToWallet(ctx)
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.WalletRepo.CreateWallet(txCtx, w); err != nil {
			return err
		}
		if req.InitialCredits.IsPositive() {
			_, err := s.apply(txCtx, w, &wallet.Operation{
				WalletID:          w.ID,
				Type:              types.TransactionTypeInbound,
				CreditAmount:      req.InitialCredits,
				TransactionReason: types.TransactionReasonGranted,
				Source:            types.TransactionSourceManual,
				Description:       "Initial credit grant",
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created wallet",
		"wallet_id", w.ID,
		"customer_id", w.CustomerID,
		"initial_credits", req.InitialCredits.String(),
	)
	return w, nil
}

func (s *walletService) GetWallet(ctx context.Context, id string) (*wallet.Wallet, error) {
	return s.WalletRepo.GetWalletByID(ctx, id)
}

func (s *walletService) TopUp(ctx context.Context, walletID string, req *dto.TopUpWalletRequest) (*wallet.Transaction, error) {
	reason := req.Reason
	if reason == "" {
		reason = types.TransactionReasonPurchased
	}
	source := req.Source
	if source == "" {
		source = types.TransactionSourceManual
	}

	var txn *wallet.Transaction
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		w, err := s.WalletRepo.GetWalletByID(txCtx, walletID)
		if err != nil {
			return err
		}
		txn, err = s.apply(txCtx, w, &wallet.Operation{
			WalletID:          walletID,
			Type:              types.TransactionTypeInbound,
			CreditAmount:      req.Credits,
			TransactionReason: reason,
			Source:            source,
			IdempotencyKey:    req.IdempotencyKey,
			Description:       req.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *walletService) Debit(ctx context.Context, op *wallet.Operation) (*wallet.Transaction, error) {
	op.Type = types.TransactionTypeOutbound
	var txn *wallet.Transaction
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		w, err := s.WalletRepo.GetWalletByID(txCtx, op.WalletID)
		if err != nil {
			return err
		}
		if !w.IsActive(time.Now().UTC()) {
			return ierr.NewError("wallet is not active").
				WithHintf("Wallet %s is terminated or expired", w.ID).
				Mark(ierr.ErrInvalidOperation)
		}
		txn, err = s.apply(txCtx, w, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// TerminateWallet soft-deletes the wallet; the ledger and balance are kept
// for audit
func (s *walletService) TerminateWallet(ctx context.Context, id string) error {
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		w, err := s.WalletRepo.GetWalletByID(txCtx, id)
		if err != nil {
			return err
		}
		if w.WalletStatus == types.WalletStatusTerminated {
			return ierr.NewError("wallet already terminated").
				WithHintf("Wallet %s is already terminated", id).
				Mark(ierr.ErrInvalidOperation)
		}
		return s.WalletRepo.UpdateWalletStatus(txCtx, id, types.WalletStatusTerminated)
	})
	if err != nil {
		return err
	}

	publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventWalletTerminated, "wallet", id)
	return nil
}

func (s *walletService) ListTransactions(ctx context.Context, walletID string, filter *types.Filter) ([]*wallet.Transaction, error) {
	return s.WalletRepo.ListTransactions(ctx, walletID, filter)
}

// apply appends the ledger entry and updates the cached balance. Every
// wallet mutation funnels through here.
func (s *walletService) apply(ctx context.Context, w *wallet.Wallet, op *wallet.Operation) (*wallet.Transaction, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	// Fall back to the request-level Idempotency-Key header when the
	// operation does not carry its own key
	if op.IdempotencyKey == "" {
		op.IdempotencyKey = types.GetIdempotencyKey(ctx)
	}
	if op.IdempotencyKey != "" {
		if existing, err := s.WalletRepo.GetTransactionByIdempotencyKey(ctx, w.ID, op.IdempotencyKey); err == nil {
			return existing, nil
		} else if !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	var balanceAfter decimal.Decimal
	switch op.Type {
	case types.TransactionTypeInbound:
		balanceAfter = w.CreditsBalance.Add(op.CreditAmount)
	case types.TransactionTypeOutbound:
		balanceAfter = w.CreditsBalance.Sub(op.CreditAmount)
		if balanceAfter.IsNegative() {
			return nil, ierr.NewError("insufficient wallet balance").
				WithHintf("Wallet %s holds %s credits, needs %s", w.ID, w.CreditsBalance.String(), op.CreditAmount.String()).
				WithReportableDetails(map[string]interface{}{
					"wallet_id":      w.ID,
					"balance":        w.CreditsBalance.StringFixed(4),
					"debit_requested": op.CreditAmount.StringFixed(4),
				}).
				Mark(ierr.ErrInvalidOperation)
		}
	}

	txn := &wallet.Transaction{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_TRANSACTION),
		WalletID:            w.ID,
		Type:                op.Type,
		CreditAmount:        op.CreditAmount,
		CreditBalanceBefore: w.CreditsBalance,
		CreditBalanceAfter:  balanceAfter,
		TransactionStatus:   types.TransactionStatusSettled,
		TransactionReason:   op.TransactionReason,
		Source:              op.Source,
		ReferenceType:       op.ReferenceType,
		ReferenceID:         op.ReferenceID,
		IdempotencyKey:      op.IdempotencyKey,
		Description:         op.Description,
		TransactionDate:     time.Now().UTC(),
		Metadata:            op.Metadata,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	if err := s.WalletRepo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	if err := s.WalletRepo.UpdateWalletBalance(ctx, w.ID, balanceAfter); err != nil {
		return nil, err
	}
	w.CreditsBalance = balanceAfter

	if !balanceAfter.IsPositive() && op.Type == types.TransactionTypeOutbound {
		publishWebhookEvent(ctx, s.ServiceParams, types.WebhookEventWalletDepleted, "wallet", w.ID)
	}
	return txn, nil
}
