package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billix/billix/internal/domain/invoice"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryInvoiceStore struct {
	mu          sync.RWMutex
	invoices    map[string]*invoice.Invoice
	settlements map[string][]*invoice.Settlement
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		invoices:    make(map[string]*invoice.Invoice),
		settlements: make(map[string][]*invoice.Settlement),
	}
}

func (s *InMemoryInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.IdempotencyKey != nil {
		for _, existing := range s.invoices {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *inv.IdempotencyKey &&
				existing.Status != types.StatusDeleted {
				return ierr.NewError("invoice already exists").
					WithHint("Invoice with this idempotency key already exists").
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}
	s.invoices[inv.ID] = inv
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok || inv.Status == types.StatusDeleted {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.IdempotencyKey != nil && *inv.IdempotencyKey == key && inv.Status != types.StatusDeleted {
			return inv, nil
		}
	}
	return nil, ierr.NewError("invoice not found").
		WithHint("Invoice not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			Mark(ierr.ErrNotFound)
	}
	s.invoices[inv.ID] = inv
	return nil
}

func (s *InMemoryInvoiceStore) matches(inv *invoice.Invoice, filter *invoice.InvoiceFilter) bool {
	if inv.Status == types.StatusDeleted {
		return false
	}
	if filter.CustomerID != "" && inv.CustomerID != filter.CustomerID {
		return false
	}
	if filter.SubscriptionID != "" &&
		(inv.SubscriptionID == nil || *inv.SubscriptionID != filter.SubscriptionID) {
		return false
	}
	if filter.InvoiceType != "" && inv.InvoiceType != filter.InvoiceType {
		return false
	}
	if len(filter.InvoiceStatus) > 0 {
		found := false
		for _, status := range filter.InvoiceStatus {
			if inv.InvoiceStatus == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.PeriodStart != nil &&
		(inv.PeriodStart == nil || inv.PeriodStart.Before(*filter.PeriodStart)) {
		return false
	}
	if filter.PeriodEnd != nil &&
		(inv.PeriodEnd == nil || inv.PeriodEnd.After(*filter.PeriodEnd)) {
		return false
	}
	return true
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *invoice.InvoiceFilter) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invoices := []*invoice.Invoice{}
	for _, inv := range s.invoices {
		if s.matches(inv, filter) {
			invoices = append(invoices, inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].CreatedAt.Equal(invoices[j].CreatedAt) {
			return invoices[i].ID < invoices[j].ID
		}
		return invoices[i].CreatedAt.Before(invoices[j].CreatedAt)
	})
	f := filter.Filter
	if f == nil {
		f = &types.Filter{}
	}
	return paginate(invoices, *f), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *invoice.InvoiceFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, inv := range s.invoices {
		if s.matches(inv, filter) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryInvoiceStore) ListOutstanding(ctx context.Context, customerID string, asOf time.Time) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invoices := []*invoice.Invoice{}
	for _, inv := range s.invoices {
		if inv.Status == types.StatusDeleted || inv.CustomerID != customerID {
			continue
		}
		if inv.InvoiceStatus != types.InvoiceStatusFinalized {
			continue
		}
		if !inv.Total.GreaterThan(inv.AmountPaid) {
			continue
		}
		if inv.DueAt == nil || inv.DueAt.After(asOf) {
			continue
		}
		invoices = append(invoices, inv)
	}
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].DueAt.Equal(*invoices[j].DueAt) {
			return invoices[i].ID < invoices[j].ID
		}
		return invoices[i].DueAt.Before(*invoices[j].DueAt)
	})
	return invoices, nil
}

func (s *InMemoryInvoiceStore) CreateSettlement(ctx context.Context, settlement *invoice.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements[settlement.InvoiceID] = append(s.settlements[settlement.InvoiceID], settlement)
	return nil
}

func (s *InMemoryInvoiceStore) ListSettlements(ctx context.Context, invoiceID string) ([]*invoice.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settlements[invoiceID], nil
}

func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = make(map[string]*invoice.Invoice)
	s.settlements = make(map[string][]*invoice.Settlement)
}
