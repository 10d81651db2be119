package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/tax"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryTaxStore struct {
	mu      sync.RWMutex
	taxes   map[string]*tax.Tax
	applied map[string]*tax.AppliedTax
	seq     int
	order   map[string]int
}

func NewInMemoryTaxStore() *InMemoryTaxStore {
	return &InMemoryTaxStore{
		taxes:   make(map[string]*tax.Tax),
		applied: make(map[string]*tax.AppliedTax),
		order:   make(map[string]int),
	}
}

func (s *InMemoryTaxStore) Create(ctx context.Context, t *tax.Tax) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.taxes {
		if existing.Code == t.Code && existing.Status != types.StatusDeleted {
			return ierr.NewError("tax already exists").
				WithHint("Tax with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.taxes[t.ID] = t
	return nil
}

func (s *InMemoryTaxStore) Get(ctx context.Context, id string) (*tax.Tax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.taxes[id]
	if !ok || t.Status == types.StatusDeleted {
		return nil, ierr.NewError("tax not found").
			WithHint("Tax not found").
			Mark(ierr.ErrNotFound)
	}
	return t, nil
}

func (s *InMemoryTaxStore) GetByCode(ctx context.Context, code string) (*tax.Tax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.taxes {
		if t.Code == code && t.Status != types.StatusDeleted {
			return t, nil
		}
	}
	return nil, ierr.NewError("tax not found").
		WithHint("Tax not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTaxStore) CreateApplied(ctx context.Context, at *tax.AppliedTax) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[at.ID] = s.seq
	s.applied[at.ID] = at
	return nil
}

func (s *InMemoryTaxStore) ListApplied(ctx context.Context, taxableType types.TaxableType, taxableID string) ([]*tax.AppliedTax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	applied := []*tax.AppliedTax{}
	for _, at := range s.applied {
		if at.TaxableType == taxableType && at.TaxableID == taxableID && at.Status != types.StatusDeleted {
			applied = append(applied, at)
		}
	}
	sort.Slice(applied, func(i, j int) bool {
		return s.order[applied[i].ID] < s.order[applied[j].ID]
	})
	return applied, nil
}

func (s *InMemoryTaxStore) DeleteApplied(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.applied[id]
	if !ok {
		return ierr.NewError("applied tax not found").
			WithHint("Applied tax not found").
			Mark(ierr.ErrNotFound)
	}
	at.Status = types.StatusDeleted
	return nil
}

func (s *InMemoryTaxStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxes = make(map[string]*tax.Tax)
	s.applied = make(map[string]*tax.AppliedTax)
	s.order = make(map[string]int)
	s.seq = 0
}
