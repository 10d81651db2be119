package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/plan"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryPlanStore struct {
	mu    sync.RWMutex
	plans map[string]*plan.Plan
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{plans: make(map[string]*plan.Plan)}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.plans {
		if existing.Code == p.Code && existing.Status != types.StatusDeleted {
			return ierr.NewError("plan already exists").
				WithHint("Plan with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.plans[p.ID] = p
	return nil
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok || p.Status == types.StatusDeleted {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPlanStore) GetByCode(ctx context.Context, code string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.Code == code && p.Status != types.StatusDeleted {
			return p, nil
		}
	}
	return nil, ierr.NewError("plan not found").
		WithHint("Plan not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPlanStore) List(ctx context.Context, filter types.Filter) ([]*plan.Plan, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plans := make([]*plan.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		if p.Status != types.StatusDeleted {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.Before(plans[j].CreatedAt)
	})
	total := len(plans)
	return paginate(plans, filter), total, nil
}

func (s *InMemoryPlanStore) Update(ctx context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; !ok {
		return ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	s.plans[p.ID] = p
	return nil
}

func (s *InMemoryPlanStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	p.Status = types.StatusDeleted
	return nil
}

func (s *InMemoryPlanStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = make(map[string]*plan.Plan)
}

type InMemoryChargeStore struct {
	mu      sync.RWMutex
	charges map[string]*charge.Charge
	seq     int
	order   map[string]int
}

func NewInMemoryChargeStore() *InMemoryChargeStore {
	return &InMemoryChargeStore{
		charges: make(map[string]*charge.Charge),
		order:   make(map[string]int),
	}
}

func (s *InMemoryChargeStore) Create(ctx context.Context, c *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[c.ID] = s.seq
	s.charges[c.ID] = c
	return nil
}

func (s *InMemoryChargeStore) Get(ctx context.Context, id string) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.charges[id]
	if !ok || c.Status == types.StatusDeleted {
		return nil, ierr.NewError("charge not found").
			WithHint("Charge not found").
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryChargeStore) GetByPlan(ctx context.Context, planID string) ([]*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	charges := []*charge.Charge{}
	for _, c := range s.charges {
		if c.PlanID == planID && c.Status != types.StatusDeleted {
			charges = append(charges, c)
		}
	}
	sort.Slice(charges, func(i, j int) bool {
		return s.order[charges[i].ID] < s.order[charges[j].ID]
	})
	return charges, nil
}

func (s *InMemoryChargeStore) Update(ctx context.Context, c *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.charges[c.ID]; !ok {
		return ierr.NewError("charge not found").
			WithHint("Charge not found").
			Mark(ierr.ErrNotFound)
	}
	s.charges[c.ID] = c
	return nil
}

func (s *InMemoryChargeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[id]
	if !ok {
		return ierr.NewError("charge not found").
			WithHint("Charge not found").
			Mark(ierr.ErrNotFound)
	}
	c.Status = types.StatusDeleted
	return nil
}

func (s *InMemoryChargeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charges = make(map[string]*charge.Charge)
	s.order = make(map[string]int)
	s.seq = 0
}
