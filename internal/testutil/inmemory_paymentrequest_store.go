package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billix/billix/internal/domain/paymentrequest"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryPaymentRequestStore struct {
	mu       sync.RWMutex
	requests map[string]*paymentrequest.PaymentRequest
	payments map[string][]*paymentrequest.Payment
	seq      int
	order    map[string]int
}

func NewInMemoryPaymentRequestStore() *InMemoryPaymentRequestStore {
	return &InMemoryPaymentRequestStore{
		requests: make(map[string]*paymentrequest.PaymentRequest),
		payments: make(map[string][]*paymentrequest.Payment),
		order:    make(map[string]int),
	}
}

func (s *InMemoryPaymentRequestStore) Create(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[pr.ID] = s.seq
	s.requests[pr.ID] = pr
	return nil
}

func (s *InMemoryPaymentRequestStore) Get(ctx context.Context, id string) (*paymentrequest.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pr, ok := s.requests[id]
	if !ok || pr.Status == types.StatusDeleted {
		return nil, ierr.NewError("payment request not found").
			WithHint("Payment request not found").
			Mark(ierr.ErrNotFound)
	}
	return pr, nil
}

func (s *InMemoryPaymentRequestStore) Update(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[pr.ID]; !ok {
		return ierr.NewError("payment request not found").
			WithHint("Payment request not found").
			Mark(ierr.ErrNotFound)
	}
	s.requests[pr.ID] = pr
	return nil
}

func (s *InMemoryPaymentRequestStore) ListOpenByCustomer(ctx context.Context, customerID string) ([]*paymentrequest.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(pr *paymentrequest.PaymentRequest) bool {
		return pr.CustomerID == customerID &&
			pr.Status != types.StatusDeleted &&
			pr.PaymentStatus != types.PaymentRequestStatusFailed
	}), nil
}

func (s *InMemoryPaymentRequestStore) ListDueForRetry(ctx context.Context, asOf time.Time) ([]*paymentrequest.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(pr *paymentrequest.PaymentRequest) bool {
		return pr.Status != types.StatusDeleted &&
			pr.PaymentStatus == types.PaymentRequestStatusPending &&
			pr.NextAttemptAt != nil && !pr.NextAttemptAt.After(asOf)
	}), nil
}

func (s *InMemoryPaymentRequestStore) ListByCustomer(ctx context.Context, customerID string, filter *types.Filter) ([]*paymentrequest.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	requests := s.sorted(func(pr *paymentrequest.PaymentRequest) bool {
		return pr.CustomerID == customerID && pr.Status != types.StatusDeleted
	})
	// newest first
	for i, j := 0, len(requests)-1; i < j; i, j = i+1, j-1 {
		requests[i], requests[j] = requests[j], requests[i]
	}
	if filter == nil {
		filter = &types.Filter{}
	}
	return paginate(requests, *filter), nil
}

func (s *InMemoryPaymentRequestStore) CreatePayment(ctx context.Context, p *paymentrequest.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.PaymentRequestID] = append(s.payments[p.PaymentRequestID], p)
	return nil
}

func (s *InMemoryPaymentRequestStore) ListPayments(ctx context.Context, paymentRequestID string) ([]*paymentrequest.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payments[paymentRequestID], nil
}

func (s *InMemoryPaymentRequestStore) sorted(keep func(*paymentrequest.PaymentRequest) bool) []*paymentrequest.PaymentRequest {
	requests := []*paymentrequest.PaymentRequest{}
	for _, pr := range s.requests {
		if keep(pr) {
			requests = append(requests, pr)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return s.order[requests[i].ID] < s.order[requests[j].ID]
	})
	return requests
}

func (s *InMemoryPaymentRequestStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = make(map[string]*paymentrequest.PaymentRequest)
	s.payments = make(map[string][]*paymentrequest.Payment)
	s.order = make(map[string]int)
	s.seq = 0
}
