package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/customer"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryCustomerStore struct {
	mu        sync.RWMutex
	customers map[string]*customer.Customer
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{customers: make(map[string]*customer.Customer)}
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.customers {
		if existing.ExternalID == c.ExternalID && existing.Status != types.StatusDeleted {
			return ierr.NewError("customer already exists").
				WithHint("Customer with this external ID already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.customers[c.ID] = c
	return nil
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok || c.Status == types.StatusDeleted {
		return nil, ierr.NewError("customer not found").
			WithHint("Customer not found").
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryCustomerStore) GetByExternalID(ctx context.Context, externalID string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.ExternalID == externalID && c.Status != types.StatusDeleted {
			return c, nil
		}
	}
	return nil, ierr.NewError("customer not found").
		WithHint("Customer not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCustomerStore) List(ctx context.Context, filter types.Filter) ([]*customer.Customer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	customers := make([]*customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if c.Status != types.StatusDeleted {
			customers = append(customers, c)
		}
	}
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].CreatedAt.Before(customers[j].CreatedAt)
	})
	total := len(customers)
	return paginate(customers, filter), total, nil
}

func (s *InMemoryCustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; !ok {
		return ierr.NewError("customer not found").
			WithHint("Customer not found").
			Mark(ierr.ErrNotFound)
	}
	s.customers[c.ID] = c
	return nil
}

func (s *InMemoryCustomerStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return ierr.NewError("customer not found").
			WithHint("Customer not found").
			Mark(ierr.ErrNotFound)
	}
	c.Status = types.StatusDeleted
	return nil
}

func (s *InMemoryCustomerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = make(map[string]*customer.Customer)
}
