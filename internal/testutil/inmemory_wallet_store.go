package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/wallet"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type InMemoryWalletStore struct {
	mu           sync.RWMutex
	wallets      map[string]*wallet.Wallet
	transactions map[string]*wallet.Transaction
	txSeq        int
	txOrder      map[string]int
}

func NewInMemoryWalletStore() *InMemoryWalletStore {
	return &InMemoryWalletStore{
		wallets:      make(map[string]*wallet.Wallet),
		transactions: make(map[string]*wallet.Transaction),
		txOrder:      make(map[string]int),
	}
}

func (s *InMemoryWalletStore) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.ID] = w
	return nil
}

func (s *InMemoryWalletStore) GetWalletByID(ctx context.Context, id string) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok || w.Status == types.StatusDeleted {
		return nil, ierr.NewError("wallet not found").
			WithHint("Wallet not found").
			Mark(ierr.ErrNotFound)
	}
	return w, nil
}

func (s *InMemoryWalletStore) GetWalletsByCustomer(ctx context.Context, customerID string) ([]*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallets := []*wallet.Wallet{}
	for _, w := range s.wallets {
		if w.CustomerID == customerID && w.Status != types.StatusDeleted {
			wallets = append(wallets, w)
		}
	}
	// priority ascending with nil last, then balance descending
	sort.SliceStable(wallets, func(i, j int) bool {
		pi, pj := wallets[i].Priority, wallets[j].Priority
		switch {
		case pi != nil && pj != nil && *pi != *pj:
			return *pi < *pj
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		}
		return wallets[i].CreditsBalance.GreaterThan(wallets[j].CreditsBalance)
	})
	return wallets, nil
}

func (s *InMemoryWalletStore) UpdateWalletStatus(ctx context.Context, id string, status types.WalletStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return ierr.NewError("wallet not found").
			WithHint("Wallet not found").
			Mark(ierr.ErrNotFound)
	}
	w.WalletStatus = status
	return nil
}

func (s *InMemoryWalletStore) UpdateWalletBalance(ctx context.Context, id string, creditsBalance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return ierr.NewError("wallet not found").
			WithHint("Wallet not found").
			Mark(ierr.ErrNotFound)
	}
	w.CreditsBalance = creditsBalance
	return nil
}

func (s *InMemoryWalletStore) CreateTransaction(ctx context.Context, tx *wallet.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.IdempotencyKey != "" {
		for _, existing := range s.transactions {
			if existing.WalletID == tx.WalletID && existing.IdempotencyKey == tx.IdempotencyKey {
				return ierr.NewError("transaction already exists").
					WithHint("Wallet transaction with this idempotency key already exists").
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}
	s.txSeq++
	s.txOrder[tx.ID] = s.txSeq
	s.transactions[tx.ID] = tx
	return nil
}

func (s *InMemoryWalletStore) GetTransactionByID(ctx context.Context, id string) (*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, ierr.NewError("transaction not found").
			WithHint("Wallet transaction not found").
			Mark(ierr.ErrNotFound)
	}
	return tx, nil
}

func (s *InMemoryWalletStore) GetTransactionByIdempotencyKey(ctx context.Context, walletID, key string) (*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.WalletID == walletID && tx.IdempotencyKey == key {
			return tx, nil
		}
	}
	return nil, ierr.NewError("transaction not found").
		WithHint("Wallet transaction not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryWalletStore) UpdateTransactionStatus(ctx context.Context, id string, status types.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return ierr.NewError("transaction not found").
			WithHint("Wallet transaction not found").
			Mark(ierr.ErrNotFound)
	}
	tx.TransactionStatus = status
	return nil
}

func (s *InMemoryWalletStore) ListTransactions(ctx context.Context, walletID string, filter *types.Filter) ([]*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := s.sortedTx(func(tx *wallet.Transaction) bool {
		return tx.WalletID == walletID
	})
	// newest first
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	if filter == nil {
		filter = &types.Filter{}
	}
	return paginate(txs, *filter), nil
}

func (s *InMemoryWalletStore) ListTransactionsByReference(ctx context.Context, referenceType, referenceID string) ([]*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedTx(func(tx *wallet.Transaction) bool {
		return tx.ReferenceType == referenceType && tx.ReferenceID == referenceID
	}), nil
}

func (s *InMemoryWalletStore) sortedTx(keep func(*wallet.Transaction) bool) []*wallet.Transaction {
	txs := []*wallet.Transaction{}
	for _, tx := range s.transactions {
		if keep(tx) {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		return s.txOrder[txs[i].ID] < s.txOrder[txs[j].ID]
	})
	return txs
}

func (s *InMemoryWalletStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = make(map[string]*wallet.Wallet)
	s.transactions = make(map[string]*wallet.Transaction)
	s.txOrder = make(map[string]int)
	s.txSeq = 0
}
