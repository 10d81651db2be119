package dto

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/events"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/validator"
)

type IngestEventRequest struct {
	TransactionID      string                 `json:"transaction_id" validate:"required" binding:"required"`
	ExternalCustomerID string                 `json:"external_customer_id" validate:"required" binding:"required"`
	Code               string                 `json:"code" validate:"required" binding:"required"`
	Timestamp          time.Time              `json:"timestamp"`
	Properties         map[string]interface{} `json:"properties"`
}

func (r *IngestEventRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *IngestEventRequest) ToEvent(ctx context.Context) *events.Event {
	return events.NewEvent(
		types.GetTenantID(ctx),
		r.TransactionID,
		r.ExternalCustomerID,
		r.Code,
		r.Properties,
		r.Timestamp,
	)
}

// BulkIngestEventRequest carries up to 100 events per call
type BulkIngestEventRequest struct {
	Events []*IngestEventRequest `json:"events" validate:"required,min=1,max=100"`
}

func (r *BulkIngestEventRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type IngestEventResponse struct {
	Ingested   int `json:"ingested"`
	Duplicates int `json:"duplicates"`
}

type GetUsageRequest struct {
	Code               string                `form:"code" json:"code" binding:"required" validate:"required"`
	ExternalCustomerID string                `form:"external_customer_id" json:"external_customer_id"`
	FieldName          string                `form:"field_name" json:"field_name"`
	AggregationType    types.AggregationType `form:"aggregation_type" json:"aggregation_type" binding:"required" validate:"required"`
	StartTime          time.Time             `form:"start_time" json:"start_time"`
	EndTime            time.Time             `form:"end_time" json:"end_time"`
	Filters            map[string]string     `form:"filters" json:"filters,omitempty"`
}

func (r *GetUsageRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *GetUsageRequest) ToUsageParams() *events.UsageParams {
	return &events.UsageParams{
		Code:               r.Code,
		ExternalCustomerID: r.ExternalCustomerID,
		StartTime:          r.StartTime.UTC(),
		EndTime:            r.EndTime.UTC(),
		AggregationType:    r.AggregationType,
		FieldName:          r.FieldName,
		PropertyFilters:    r.Filters,
	}
}

type GetUsageByMetricRequest struct {
	MetricID           string            `form:"metric_id" json:"metric_id" binding:"required" validate:"required"`
	ExternalCustomerID string            `form:"external_customer_id" json:"external_customer_id"`
	StartTime          time.Time         `form:"start_time" json:"start_time"`
	EndTime            time.Time         `form:"end_time" json:"end_time"`
	Filters            map[string]string `form:"filters" json:"filters,omitempty"`
}

func (r *GetUsageByMetricRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type GetUsageResponse struct {
	Value       string                `json:"value"`
	EventsCount uint64                `json:"events_count"`
	Code        string                `json:"code"`
	Type        types.AggregationType `json:"type"`
}

func FromAggregationResult(result *events.AggregationResult, code string, aggregationType types.AggregationType) *GetUsageResponse {
	if result == nil {
		return nil
	}
	return &GetUsageResponse{
		Value:       result.Value.StringFixed(4),
		EventsCount: result.EventsCount,
		Code:        code,
		Type:        aggregationType,
	}
}

type GetEventsRequest struct {
	ExternalCustomerID string    `json:"external_customer_id"`
	Code               string    `json:"code"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Limit              int       `json:"limit"`
	Offset             int       `json:"offset"`
}

type GetEventsResponse struct {
	Events     []*events.Event `json:"events"`
	TotalCount uint64          `json:"total_count"`
}
