package service

import (
	"context"
	"sync"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/events"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"golang.org/x/time/rate"
)

type EventService interface {
	IngestEvent(ctx context.Context, req *dto.IngestEventRequest) (*events.IngestResult, error)
	IngestBatch(ctx context.Context, req *dto.BulkIngestEventRequest) (*events.IngestResult, error)
	GetEvents(ctx context.Context, req *dto.GetEventsRequest) (*dto.GetEventsResponse, error)
}

type eventService struct {
	ServiceParams
	limiters *tenantLimiters
}

func NewEventService(params ServiceParams) EventService {
	return &eventService{
		ServiceParams: params,
		limiters:      newTenantLimiters(params.Config.RateLimit.EventsPerMinute),
	}
}

func (s *eventService) IngestEvent(ctx context.Context, req *dto.IngestEventRequest) (*events.IngestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, 1); err != nil {
		return nil, err
	}

	event := req.ToEvent(ctx)
	if err := event.Validate(); err != nil {
		return nil, err
	}

	inserted, err := s.EventRepo.InsertEvent(ctx, event)
	if err != nil {
		s.Logger.Errorw("failed to insert event",
			"error", err,
			"transaction_id", event.TransactionID,
			"code", event.Code,
		)
		return nil, err
	}

	result := &events.IngestResult{}
	if inserted {
		result.Ingested = 1
		s.publishIngested(ctx, event)
	} else {
		result.Duplicates = 1
	}
	return result, nil
}

func (s *eventService) IngestBatch(ctx context.Context, req *dto.BulkIngestEventRequest) (*events.IngestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, len(req.Events)); err != nil {
		return nil, err
	}

	batch := make([]*events.Event, 0, len(req.Events))
	for _, er := range req.Events {
		event := er.ToEvent(ctx)
		if err := event.Validate(); err != nil {
			return nil, err
		}
		batch = append(batch, event)
	}

	result, err := s.EventRepo.BulkInsertEvents(ctx, batch)
	if err != nil {
		s.Logger.Errorw("failed to bulk insert events",
			"error", err,
			"batch_size", len(batch),
		)
		return nil, err
	}

	for _, event := range batch {
		s.publishIngested(ctx, event)
	}

	s.Logger.Debugw("ingested event batch",
		"ingested", result.Ingested,
		"duplicates", result.Duplicates,
	)
	return result, nil
}

func (s *eventService) GetEvents(ctx context.Context, req *dto.GetEventsRequest) (*dto.GetEventsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = types.FilterDefaultLimit
	}
	evs, total, err := s.EventRepo.GetEvents(ctx, &events.GetEventsParams{
		ExternalCustomerID: req.ExternalCustomerID,
		Code:               req.Code,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Limit:              limit,
		Offset:             req.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &dto.GetEventsResponse{Events: evs, TotalCount: total}, nil
}

// publishIngested forwards the event to the bus for downstream consumers.
// Publish failures never fail the ingestion.
func (s *eventService) publishIngested(ctx context.Context, event *events.Event) {
	if s.EventPublisher == nil {
		return
	}
	if err := s.EventPublisher.Publish(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish ingested event",
			"error", err,
			"event_id", event.ID,
		)
	}
}

func (s *eventService) checkRateLimit(ctx context.Context, n int) error {
	tenantID := types.GetTenantID(ctx)
	limit := s.Config.RateLimit.EventsPerMinute
	if t, err := s.TenantRepo.Get(ctx, tenantID); err == nil && t.RateLimitPerMinute > 0 {
		limit = t.RateLimitPerMinute
	}
	if limit <= 0 {
		return nil
	}
	if !s.limiters.allow(tenantID, limit, n) {
		return ierr.NewError("event ingestion rate limit exceeded").
			WithHintf("Tenant exceeded %d events per minute", limit).
			WithReportableDetails(map[string]interface{}{
				"limit_per_minute": limit,
			}).
			Mark(ierr.ErrRateLimited)
	}
	return nil
}

// tenantLimiters keeps one sliding-window limiter per tenant. No monetary
// state lives here; losing it on restart only relaxes the window once.
type tenantLimiters struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultLimit int
}

func newTenantLimiters(defaultLimit int) *tenantLimiters {
	return &tenantLimiters{
		limiters:     make(map[string]*rate.Limiter),
		defaultLimit: defaultLimit,
	}
}

func (t *tenantLimiters) allow(tenantID string, perMinute, n int) bool {
	t.mu.Lock()
	limiter, ok := t.limiters[tenantID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		t.limiters[tenantID] = limiter
	}
	t.mu.Unlock()
	return limiter.AllowN(timeNow(), n)
}
