package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billix/billix/internal/domain/events"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

// InMemoryEventStore implements events.Repository with the same
// (tenant, transaction_id) idempotency contract as the real stores
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []*events.Event
	seen   map[string]struct{}
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{seen: make(map[string]struct{})}
}

func dedupKey(tenantID, transactionID string) string {
	return tenantID + "/" + transactionID
}

func (s *InMemoryEventStore) InsertEvent(ctx context.Context, event *events.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dedupKey(event.TenantID, event.TransactionID)
	if _, dup := s.seen[key]; dup {
		return false, nil
	}
	event.IngestedAt = time.Now().UTC()
	s.seen[key] = struct{}{}
	s.events = append(s.events, event)
	return true, nil
}

func (s *InMemoryEventStore) BulkInsertEvents(ctx context.Context, batch []*events.Event) (*events.IngestResult, error) {
	result := &events.IngestResult{}
	for _, event := range batch {
		inserted, err := s.InsertEvent(ctx, event)
		if err != nil {
			return nil, err
		}
		if inserted {
			result.Ingested++
		} else {
			result.Duplicates++
		}
	}
	return result, nil
}

func (s *InMemoryEventStore) GetUsage(ctx context.Context, params *events.UsageParams) (*events.AggregationResult, error) {
	matched, err := s.GetRawEvents(ctx, params)
	if err != nil {
		return nil, err
	}
	return events.Aggregate(matched, params.AggregationType, params.FieldName)
}

func (s *InMemoryEventStore) GetRawEvents(ctx context.Context, params *events.UsageParams) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantID := types.GetTenantID(ctx)
	matched := []*events.Event{}
	for _, e := range s.events {
		if e.TenantID != tenantID {
			continue
		}
		if params.Matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].IngestedAt.Before(matched[j].IngestedAt)
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	return matched, nil
}

func (s *InMemoryEventStore) GetEvents(ctx context.Context, params *events.GetEventsParams) ([]*events.Event, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantID := types.GetTenantID(ctx)
	matched := []*events.Event{}
	for _, e := range s.events {
		if e.TenantID != tenantID {
			continue
		}
		if params.Code != "" && e.Code != params.Code {
			continue
		}
		if params.ExternalCustomerID != "" && e.ExternalCustomerID != params.ExternalCustomerID {
			continue
		}
		if !params.StartTime.IsZero() && e.Timestamp.Before(params.StartTime) {
			continue
		}
		if !params.EndTime.IsZero() && !e.Timestamp.Before(params.EndTime) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	total := uint64(len(matched))

	offset := params.Offset
	if offset >= len(matched) {
		return []*events.Event{}, total, nil
	}
	matched = matched[offset:]
	limit := params.Limit
	if limit <= 0 {
		limit = types.FilterDefaultLimit
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *InMemoryEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.seen = make(map[string]struct{})
}

type InMemoryDailyUsageStore struct {
	mu      sync.RWMutex
	rollups map[string]*events.DailyUsage
}

func NewInMemoryDailyUsageStore() *InMemoryDailyUsageStore {
	return &InMemoryDailyUsageStore{rollups: make(map[string]*events.DailyUsage)}
}

func rollupKey(subscriptionID, metricID string, date time.Time) string {
	return subscriptionID + "/" + metricID + "/" + date.UTC().Format("2006-01-02")
}

func (s *InMemoryDailyUsageStore) Upsert(ctx context.Context, usage *events.DailyUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollups[rollupKey(usage.SubscriptionID, usage.MetricID, usage.Date)] = usage
	return nil
}

func (s *InMemoryDailyUsageStore) Get(ctx context.Context, subscriptionID, metricID string, date time.Time) (*events.DailyUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	du, ok := s.rollups[rollupKey(subscriptionID, metricID, date)]
	if !ok {
		return nil, ierr.NewError("daily usage not found").
			WithHint("Daily usage not found").
			Mark(ierr.ErrNotFound)
	}
	return du, nil
}

func (s *InMemoryDailyUsageStore) ListBySubscription(ctx context.Context, subscriptionID string, from, to time.Time) ([]*events.DailyUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rollups := []*events.DailyUsage{}
	for _, du := range s.rollups {
		if du.SubscriptionID != subscriptionID {
			continue
		}
		if du.Date.Before(from) || !du.Date.Before(to) {
			continue
		}
		rollups = append(rollups, du)
	}
	sort.Slice(rollups, func(i, j int) bool {
		return rollups[i].Date.Before(rollups[j].Date)
	})
	return rollups, nil
}

func (s *InMemoryDailyUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollups = make(map[string]*events.DailyUsage)
}
