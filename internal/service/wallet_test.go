package service

import (
	"testing"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/wallet"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type WalletServiceSuite struct {
	testutil.BaseServiceTestSuite
	service WalletService
}

func TestWalletService(t *testing.T) {
	suite.Run(t, new(WalletServiceSuite))
}

func (s *WalletServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewWalletService(newServiceParams(&s.BaseServiceTestSuite))

	cust := &customer.Customer{
		ID:         "cust-1",
		ExternalID: "ext-1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), cust))
}

func (s *WalletServiceSuite) createWallet(initialCredits string) *wallet.Wallet {
	w, err := s.service.CreateWallet(s.GetContext(), &dto.CreateWalletRequest{
		CustomerID:     "cust-1",
		Name:           "Prepaid",
		Currency:       "usd",
		InitialCredits: decimal.RequireFromString(initialCredits),
	})
	s.Require().NoError(err)
	return w
}

func (s *WalletServiceSuite) TestCreateWalletWithInitialCredits() {
	w := s.createWallet("100")
	s.Equal("100", w.CreditsBalance.String())
	s.Equal(types.WalletStatusActive, w.WalletStatus)
	// rate defaults to 1:1
	s.Equal("1", w.RateAmount.String())

	// the grant shows up as a settled inbound ledger entry
	txns, err := s.service.ListTransactions(s.GetContext(), w.ID, nil)
	s.NoError(err)
	s.Require().Len(txns, 1)
	s.Equal(types.TransactionTypeInbound, txns[0].Type)
	s.Equal(types.TransactionStatusSettled, txns[0].TransactionStatus)
	s.Equal(types.TransactionReasonGranted, txns[0].TransactionReason)
	s.Equal("0", txns[0].CreditBalanceBefore.String())
	s.Equal("100", txns[0].CreditBalanceAfter.String())
}

func (s *WalletServiceSuite) TestCreateWalletCurrencyMismatch() {
	_, err := s.service.CreateWallet(s.GetContext(), &dto.CreateWalletRequest{
		CustomerID: "cust-1",
		Currency:   "eur",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WalletServiceSuite) TestTopUpIdempotency() {
	w := s.createWallet("0")

	req := &dto.TopUpWalletRequest{
		Credits:        decimal.NewFromInt(50),
		IdempotencyKey: "top-up-1",
	}
	txn, err := s.service.TopUp(s.GetContext(), w.ID, req)
	s.NoError(err)
	s.Equal("50", txn.CreditAmount.String())

	// replaying the same key returns the original transaction
	again, err := s.service.TopUp(s.GetContext(), w.ID, req)
	s.NoError(err)
	s.Equal(txn.ID, again.ID)

	got, err := s.service.GetWallet(s.GetContext(), w.ID)
	s.NoError(err)
	s.Equal("50", got.CreditsBalance.String())
}

func (s *WalletServiceSuite) TestDebit() {
	w := s.createWallet("100")

	txn, err := s.service.Debit(s.GetContext(), &wallet.Operation{
		WalletID:          w.ID,
		CreditAmount:      decimal.NewFromInt(30),
		TransactionReason: types.TransactionReasonInvoiced,
		Source:            types.TransactionSourceManual,
	})
	s.NoError(err)
	s.Equal(types.TransactionTypeOutbound, txn.Type)
	s.Equal("70", txn.CreditBalanceAfter.String())

	got, err := s.service.GetWallet(s.GetContext(), w.ID)
	s.NoError(err)
	s.Equal("70", got.CreditsBalance.String())
}

func (s *WalletServiceSuite) TestDebitInsufficientBalance() {
	w := s.createWallet("10")

	_, err := s.service.Debit(s.GetContext(), &wallet.Operation{
		WalletID:          w.ID,
		CreditAmount:      decimal.NewFromInt(11),
		TransactionReason: types.TransactionReasonInvoiced,
		Source:            types.TransactionSourceManual,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// balance untouched after the rejected debit
	got, err := s.service.GetWallet(s.GetContext(), w.ID)
	s.NoError(err)
	s.Equal("10", got.CreditsBalance.String())
}

func (s *WalletServiceSuite) TestTerminateWallet() {
	w := s.createWallet("25")

	s.NoError(s.service.TerminateWallet(s.GetContext(), w.ID))

	// terminating twice is rejected
	err := s.service.TerminateWallet(s.GetContext(), w.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// terminated wallets refuse debits but keep their ledger
	_, err = s.service.Debit(s.GetContext(), &wallet.Operation{
		WalletID:          w.ID,
		CreditAmount:      decimal.NewFromInt(5),
		TransactionReason: types.TransactionReasonInvoiced,
		Source:            types.TransactionSourceManual,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	got, err := s.service.GetWallet(s.GetContext(), w.ID)
	s.NoError(err)
	s.Equal(types.WalletStatusTerminated, got.WalletStatus)
	s.Equal("25", got.CreditsBalance.String())
}
