package service

import (
	"testing"
	"time"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/domain/tenant"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/stretchr/testify/suite"
)

type EventServiceSuite struct {
	testutil.BaseServiceTestSuite
	service EventService
}

func TestEventService(t *testing.T) {
	suite.Run(t, new(EventServiceSuite))
}

func (s *EventServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewEventService(newServiceParams(&s.BaseServiceTestSuite))
}

func (s *EventServiceSuite) ingestRequest(transactionID string) *dto.IngestEventRequest {
	return &dto.IngestEventRequest{
		TransactionID:      transactionID,
		ExternalCustomerID: "cust-1",
		Code:               "api_calls",
		Timestamp:          s.GetNow(),
		Properties:         map[string]interface{}{"region": "eu"},
	}
}

func (s *EventServiceSuite) TestIngestEvent() {
	result, err := s.service.IngestEvent(s.GetContext(), s.ingestRequest("txn-1"))
	s.NoError(err)
	s.Equal(1, result.Ingested)
	s.Equal(0, result.Duplicates)
}

func (s *EventServiceSuite) TestIngestEventIdempotency() {
	_, err := s.service.IngestEvent(s.GetContext(), s.ingestRequest("txn-1"))
	s.NoError(err)

	// same transaction id again, even with different properties
	req := s.ingestRequest("txn-1")
	req.Properties = map[string]interface{}{"region": "us"}
	result, err := s.service.IngestEvent(s.GetContext(), req)
	s.NoError(err)
	s.Equal(0, result.Ingested)
	s.Equal(1, result.Duplicates)
}

func (s *EventServiceSuite) TestIngestEventValidation() {
	_, err := s.service.IngestEvent(s.GetContext(), &dto.IngestEventRequest{
		ExternalCustomerID: "cust-1",
		Code:               "api_calls",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *EventServiceSuite) TestIngestBatch() {
	req := &dto.BulkIngestEventRequest{
		Events: []*dto.IngestEventRequest{
			s.ingestRequest("txn-1"),
			s.ingestRequest("txn-2"),
			s.ingestRequest("txn-3"),
		},
	}
	result, err := s.service.IngestBatch(s.GetContext(), req)
	s.NoError(err)
	s.Equal(3, result.Ingested)
	s.Equal(0, result.Duplicates)

	// replaying the whole batch only reports duplicates
	result, err = s.service.IngestBatch(s.GetContext(), req)
	s.NoError(err)
	s.Equal(0, result.Ingested)
	s.Equal(3, result.Duplicates)
}

func (s *EventServiceSuite) TestIngestBatchEmpty() {
	_, err := s.service.IngestBatch(s.GetContext(), &dto.BulkIngestEventRequest{})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *EventServiceSuite) TestTenantRateLimit() {
	err := s.GetStores().TenantRepo.Create(s.GetContext(), &tenant.Tenant{
		ID:                 types.DefaultTenantID,
		Name:               "Acme",
		RateLimitPerMinute: 2,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)

	_, err = s.service.IngestEvent(s.GetContext(), s.ingestRequest("txn-1"))
	s.NoError(err)
	_, err = s.service.IngestEvent(s.GetContext(), s.ingestRequest("txn-2"))
	s.NoError(err)

	_, err = s.service.IngestEvent(s.GetContext(), s.ingestRequest("txn-3"))
	s.Error(err)
	s.True(ierr.IsRateLimited(err))
}

func (s *EventServiceSuite) TestGetEvents() {
	for _, txn := range []string{"txn-1", "txn-2"} {
		_, err := s.service.IngestEvent(s.GetContext(), s.ingestRequest(txn))
		s.NoError(err)
	}
	other := s.ingestRequest("txn-3")
	other.ExternalCustomerID = "cust-2"
	_, err := s.service.IngestEvent(s.GetContext(), other)
	s.NoError(err)

	resp, err := s.service.GetEvents(s.GetContext(), &dto.GetEventsRequest{
		ExternalCustomerID: "cust-1",
		StartTime:          s.GetNow().Add(-time.Hour),
		EndTime:            s.GetNow().Add(time.Hour),
	})
	s.NoError(err)
	s.Equal(uint64(2), resp.TotalCount)
	s.Len(resp.Events, 2)
}
