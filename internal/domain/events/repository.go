package events

import (
	"context"
	"time"
)

// Repository is the event store contract. The primary implementation is
// relational; an optional columnar mirror implements the same interface and
// is preferred for aggregation queries when configured.
type Repository interface {
	// InsertEvent appends one event, idempotent on (tenant,
	// transaction_id). Returns false when the event was a duplicate.
	InsertEvent(ctx context.Context, event *Event) (bool, error)

	// BulkInsertEvents appends a batch, reporting per-batch
	// ingested/duplicate counts
	BulkInsertEvents(ctx context.Context, events []*Event) (*IngestResult, error)

	// GetUsage reduces matching events to a single aggregate
	GetUsage(ctx context.Context, params *UsageParams) (*AggregationResult, error)

	// GetRawEvents returns matching events ordered by timestamp then
	// ingestion order, for aggregations that need event-level state
	GetRawEvents(ctx context.Context, params *UsageParams) ([]*Event, error)

	// GetEvents pages raw events for inspection
	GetEvents(ctx context.Context, params *GetEventsParams) ([]*Event, uint64, error)
}

// DailyUsageRepository stores the per-day rollups
type DailyUsageRepository interface {
	// Upsert writes the rollup for (subscription, metric, date),
	// replacing any previous value
	Upsert(ctx context.Context, usage *DailyUsage) error
	Get(ctx context.Context, subscriptionID, metricID string, date time.Time) (*DailyUsage, error)
	ListBySubscription(ctx context.Context, subscriptionID string, from, to time.Time) ([]*DailyUsage, error)
}
