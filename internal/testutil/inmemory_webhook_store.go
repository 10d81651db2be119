package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billix/billix/internal/domain/webhook"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type InMemoryWebhookStore struct {
	mu        sync.RWMutex
	endpoints map[string]*webhook.Endpoint
	webhooks  map[string]*webhook.Webhook
	attempts  map[string][]*webhook.DeliveryAttempt
	seq       int
	order     map[string]int
}

func NewInMemoryWebhookStore() *InMemoryWebhookStore {
	return &InMemoryWebhookStore{
		endpoints: make(map[string]*webhook.Endpoint),
		webhooks:  make(map[string]*webhook.Webhook),
		attempts:  make(map[string][]*webhook.DeliveryAttempt),
		order:     make(map[string]int),
	}
}

func (s *InMemoryWebhookStore) CreateEndpoint(ctx context.Context, e *webhook.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[e.ID] = s.seq
	s.endpoints[e.ID] = e
	return nil
}

func (s *InMemoryWebhookStore) GetEndpoint(ctx context.Context, id string) (*webhook.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.endpoints[id]
	if !ok || e.Status == types.StatusDeleted {
		return nil, ierr.NewError("webhook endpoint not found").
			WithHint("Webhook endpoint not found").
			Mark(ierr.ErrNotFound)
	}
	return e, nil
}

func (s *InMemoryWebhookStore) UpdateEndpoint(ctx context.Context, e *webhook.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[e.ID]; !ok {
		return ierr.NewError("webhook endpoint not found").
			WithHint("Webhook endpoint not found").
			Mark(ierr.ErrNotFound)
	}
	s.endpoints[e.ID] = e
	return nil
}

func (s *InMemoryWebhookStore) ListEndpoints(ctx context.Context) ([]*webhook.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	endpoints := []*webhook.Endpoint{}
	for _, e := range s.endpoints {
		if e.Status != types.StatusDeleted {
			endpoints = append(endpoints, e)
		}
	}
	sort.Slice(endpoints, func(i, j int) bool {
		return s.order[endpoints[i].ID] < s.order[endpoints[j].ID]
	})
	return endpoints, nil
}

func (s *InMemoryWebhookStore) CreateWebhook(ctx context.Context, w *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[w.ID] = s.seq
	s.webhooks[w.ID] = w
	return nil
}

func (s *InMemoryWebhookStore) GetWebhook(ctx context.Context, id string) (*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.webhooks[id]
	if !ok || w.Status == types.StatusDeleted {
		return nil, ierr.NewError("webhook not found").
			WithHint("Webhook not found").
			Mark(ierr.ErrNotFound)
	}
	return w, nil
}

func (s *InMemoryWebhookStore) UpdateWebhook(ctx context.Context, w *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.webhooks[w.ID]; !ok {
		return ierr.NewError("webhook not found").
			WithHint("Webhook not found").
			Mark(ierr.ErrNotFound)
	}
	s.webhooks[w.ID] = w
	return nil
}

func (s *InMemoryWebhookStore) ListDueForRetry(ctx context.Context, asOf time.Time, limit int) ([]*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	due := []*webhook.Webhook{}
	for _, w := range s.webhooks {
		if w.Status == types.StatusDeleted || w.WebhookStatus != types.WebhookStatusPending {
			continue
		}
		if w.NextRetryAt == nil || w.NextRetryAt.After(asOf) {
			continue
		}
		due = append(due, w)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRetryAt.Before(*due[j].NextRetryAt)
	})
	if limit > 0 && limit < len(due) {
		due = due[:limit]
	}
	return due, nil
}

func (s *InMemoryWebhookStore) CreateAttempt(ctx context.Context, a *webhook.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.WebhookID] = append(s.attempts[a.WebhookID], a)
	return nil
}

func (s *InMemoryWebhookStore) ListAttempts(ctx context.Context, webhookID string) ([]*webhook.DeliveryAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts[webhookID], nil
}

func (s *InMemoryWebhookStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = make(map[string]*webhook.Endpoint)
	s.webhooks = make(map[string]*webhook.Webhook)
	s.attempts = make(map[string][]*webhook.DeliveryAttempt)
	s.order = make(map[string]int)
	s.seq = 0
}
