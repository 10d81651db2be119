package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/dunning"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryDunningStore struct {
	mu        sync.RWMutex
	campaigns map[string]*dunning.Campaign
}

func NewInMemoryDunningStore() *InMemoryDunningStore {
	return &InMemoryDunningStore{campaigns: make(map[string]*dunning.Campaign)}
}

func (s *InMemoryDunningStore) CreateWithThresholds(ctx context.Context, c *dunning.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.campaigns {
		if existing.Code == c.Code && existing.Status != types.StatusDeleted {
			return ierr.NewError("dunning campaign already exists").
				WithHint("Dunning campaign with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.campaigns[c.ID] = c
	return nil
}

func (s *InMemoryDunningStore) Get(ctx context.Context, id string) (*dunning.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok || c.Status == types.StatusDeleted {
		return nil, ierr.NewError("dunning campaign not found").
			WithHint("Dunning campaign not found").
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryDunningStore) GetByCode(ctx context.Context, code string) (*dunning.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.campaigns {
		if c.Code == code && c.Status != types.StatusDeleted {
			return c, nil
		}
	}
	return nil, ierr.NewError("dunning campaign not found").
		WithHint("Dunning campaign not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryDunningStore) Update(ctx context.Context, c *dunning.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.ID]; !ok {
		return ierr.NewError("dunning campaign not found").
			WithHint("Dunning campaign not found").
			Mark(ierr.ErrNotFound)
	}
	s.campaigns[c.ID] = c
	return nil
}

func (s *InMemoryDunningStore) GetOrgDefault(ctx context.Context) (*dunning.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.campaigns {
		if c.AppliedToOrg && c.Status == types.StatusPublished {
			return c, nil
		}
	}
	return nil, ierr.NewError("no org-wide dunning campaign").
		WithHint("No org-wide dunning campaign configured").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryDunningStore) List(ctx context.Context) ([]*dunning.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	campaigns := []*dunning.Campaign{}
	for _, c := range s.campaigns {
		if c.Status != types.StatusDeleted {
			campaigns = append(campaigns, c)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.Before(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

func (s *InMemoryDunningStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns = make(map[string]*dunning.Campaign)
}
