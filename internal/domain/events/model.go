package events

import (
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/validator"
	"github.com/shopspring/decimal"
)

// Event is a single metered usage record. Events are append-only and never
// mutated after ingestion.
type Event struct {
	// Unique identifier for the event
	ID string `json:"id" ch:"id" db:"id" validate:"required"`

	// TenantID scopes the event; uniqueness of TransactionID holds within
	// a tenant
	TenantID string `json:"tenant_id" ch:"tenant_id" db:"tenant_id" validate:"required"`

	// TransactionID is the caller-supplied idempotency key. Re-ingesting
	// the same transaction is counted as a duplicate, not an error.
	TransactionID string `json:"transaction_id" ch:"transaction_id" db:"transaction_id" validate:"required"`

	// ExternalCustomerID is the identifier of the customer in the
	// caller's system
	ExternalCustomerID string `json:"external_customer_id" ch:"external_customer_id" db:"external_customer_id" validate:"required"`

	// Code matches the event to billable metrics
	Code string `json:"code" ch:"code" db:"code" validate:"required"`

	// Timestamp is when the usage happened, in UTC
	Timestamp time.Time `json:"timestamp" ch:"timestamp,timezone('UTC')" db:"timestamp" validate:"required"`

	// IngestedAt is set at write time by the store
	IngestedAt time.Time `json:"ingested_at" ch:"ingested_at,timezone('UTC')" db:"ingested_at"`

	// Properties carries free-form event data; aggregation projects typed
	// numeric fields out of it as needed
	Properties map[string]interface{} `json:"properties" ch:"properties" db:"properties"`
}

// NewEvent creates a new event with defaults
func NewEvent(
	tenantID, transactionID, externalCustomerID, code string,
	properties map[string]interface{},
	timestamp time.Time,
) *Event {
	now := time.Now().UTC()
	if timestamp.IsZero() {
		timestamp = now
	} else {
		timestamp = timestamp.UTC()
	}

	return &Event{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EVENT),
		TenantID:           tenantID,
		TransactionID:      transactionID,
		ExternalCustomerID: externalCustomerID,
		Code:               code,
		Timestamp:          timestamp,
		Properties:         properties,
	}
}

// Validate validates the event
func (e *Event) Validate() error {
	if e.TransactionID == "" {
		return ierr.NewError("transaction_id is required").
			WithHint("Transaction ID is required").
			Mark(ierr.ErrValidation)
	}
	if e.Code == "" {
		return ierr.NewError("code is required").
			WithHint("Event code is required").
			Mark(ierr.ErrValidation)
	}
	return validator.ValidateRequest(e)
}

// IngestResult reports the outcome of a batch ingestion. Duplicates are
// silently counted, never surfaced as errors.
type IngestResult struct {
	Ingested   int `json:"ingested"`
	Duplicates int `json:"duplicates"`
}

// UsageParams narrows events down to one (metric, customer, window, filter)
// aggregation request
type UsageParams struct {
	Code               string
	ExternalCustomerID string
	StartTime          time.Time
	EndTime            time.Time
	AggregationType    types.AggregationType
	FieldName          string

	// PropertyFilters are exact-match predicates over event properties,
	// derived from the winning charge filter
	PropertyFilters map[string]string
}

// AggregationResult is the reduced value for a usage request
type AggregationResult struct {
	Value       decimal.Decimal `json:"value"`
	EventsCount uint64          `json:"events_count"`
}

// GetEventsParams pages raw events for debugging and exports
type GetEventsParams struct {
	ExternalCustomerID string
	Code               string
	StartTime          time.Time
	EndTime            time.Time
	Limit              int
	Offset             int
}

// DailyUsage is the pre-aggregated rollup per (subscription, metric, date),
// unique on the triple
type DailyUsage struct {
	ID             string          `db:"id" json:"id"`
	TenantID       string          `db:"tenant_id" json:"tenant_id"`
	SubscriptionID string          `db:"subscription_id" json:"subscription_id"`
	MetricID       string          `db:"metric_id" json:"metric_id"`
	Date           time.Time       `db:"date" json:"date"`
	UsageValue     decimal.Decimal `db:"usage_value" json:"usage_value"`
	EventsCount    uint64          `db:"events_count" json:"events_count"`
}
