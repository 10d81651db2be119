package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/creditnote"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryCreditNoteStore struct {
	mu    sync.RWMutex
	notes map[string]*creditnote.CreditNote
	seq   int
	order map[string]int
}

func NewInMemoryCreditNoteStore() *InMemoryCreditNoteStore {
	return &InMemoryCreditNoteStore{
		notes: make(map[string]*creditnote.CreditNote),
		order: make(map[string]int),
	}
}

func (s *InMemoryCreditNoteStore) CreateWithItems(ctx context.Context, cn *creditnote.CreditNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[cn.ID] = s.seq
	s.notes[cn.ID] = cn
	return nil
}

func (s *InMemoryCreditNoteStore) Get(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cn, ok := s.notes[id]
	if !ok || cn.Status == types.StatusDeleted {
		return nil, ierr.NewError("credit note not found").
			WithHint("Credit note not found").
			Mark(ierr.ErrNotFound)
	}
	return cn, nil
}

func (s *InMemoryCreditNoteStore) Update(ctx context.Context, cn *creditnote.CreditNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[cn.ID]; !ok {
		return ierr.NewError("credit note not found").
			WithHint("Credit note not found").
			Mark(ierr.ErrNotFound)
	}
	s.notes[cn.ID] = cn
	return nil
}

func (s *InMemoryCreditNoteStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*creditnote.CreditNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(cn *creditnote.CreditNote) bool {
		return cn.InvoiceID == invoiceID && cn.Status != types.StatusDeleted
	}), nil
}

func (s *InMemoryCreditNoteStore) ListAvailableOffsets(ctx context.Context, customerID, currency string) ([]*creditnote.CreditNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(cn *creditnote.CreditNote) bool {
		return cn.CustomerID == customerID &&
			cn.Currency == currency &&
			cn.Status != types.StatusDeleted &&
			cn.CreditNoteType == types.CreditNoteTypeOffset &&
			cn.CreditStatus != nil && *cn.CreditStatus == types.CreditStatusAvailable &&
			cn.TotalAmount.GreaterThan(cn.ConsumedAmount)
	}), nil
}

func (s *InMemoryCreditNoteStore) ListByCustomer(ctx context.Context, customerID string, filter *types.Filter) ([]*creditnote.CreditNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := s.sorted(func(cn *creditnote.CreditNote) bool {
		return cn.CustomerID == customerID && cn.Status != types.StatusDeleted
	})
	// newest first
	for i, j := 0, len(notes)-1; i < j; i, j = i+1, j-1 {
		notes[i], notes[j] = notes[j], notes[i]
	}
	if filter == nil {
		filter = &types.Filter{}
	}
	return paginate(notes, *filter), nil
}

func (s *InMemoryCreditNoteStore) sorted(keep func(*creditnote.CreditNote) bool) []*creditnote.CreditNote {
	notes := []*creditnote.CreditNote{}
	for _, cn := range s.notes {
		if keep(cn) {
			notes = append(notes, cn)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return s.order[notes[i].ID] < s.order[notes[j].ID]
	})
	return notes
}

func (s *InMemoryCreditNoteStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make(map[string]*creditnote.CreditNote)
	s.order = make(map[string]int)
	s.seq = 0
}
