package webhook

import (
	"time"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

// Endpoint is a tenant-registered delivery target. The secret signs every
// payload sent to it.
type Endpoint struct {
	ID             string                      `db:"id" json:"id"`
	URL            string                      `db:"url" json:"url"`
	Secret         string                      `db:"secret" json:"-"`
	EndpointStatus types.WebhookEndpointStatus `db:"endpoint_status" json:"endpoint_status"`
	// EventFilter limits delivery to the named events; empty means all
	EventFilter []string `db:"event_filter" json:"event_filter,omitempty"`
	types.BaseModel
}

func (e *Endpoint) Validate() error {
	if e.URL == "" {
		return ierr.NewError("url is required").
			WithHint("Webhook endpoint URL is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Accepts reports whether the endpoint wants the named event
func (e *Endpoint) Accepts(eventName string) bool {
	if e.EndpointStatus != types.WebhookEndpointStatusActive {
		return false
	}
	if len(e.EventFilter) == 0 {
		return true
	}
	for _, name := range e.EventFilter {
		if name == eventName {
			return true
		}
	}
	return false
}

/// Webhook is an outbox row: one event for one endpoint. Delivery attempts
// append to it until success or the retry budget is spent.
type Webhook struct {
	ID            string              `db:"id" json:"id"`
	EndpointID    string              `db:"endpoint_id" json:"endpoint_id"`
	EventName     string              `db:"event_name" json:"event_name"`
	ObjectType    string              `db:"object_type" json:"object_type"`
	ObjectID      string              `db:"object_id" json:"object_id"`
	Payload       []byte              `db:"payload" json:"payload"`
	WebhookStatus types.WebhookStatus `db:"webhook_status" json:"webhook_status"`
	Retries       int                 `db:"retries" json:"retries"`
	NextRetryAt   *time.Time          `db:"next_retry_at" json:"next_retry_at,omitempty"`
	LastAttemptAt *time.Time          `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	types.BaseModel
}

// DeliveryAttempt records one HTTP delivery of a webhook
type DeliveryAttempt struct {
	ID            string    `db:"id" json:"id"`
	WebhookID     string    `db:"webhook_id" json:"webhook_id"`
	AttemptNumber int       `db:"attempt_number" json:"attempt_number"`
	HTTPStatus    int       `db:"http_status" json:"http_status"`
	ResponseBody  string    `db:"response_body" json:"response_body,omitempty"`
	Error         string    `db:"error" json:"error,omitempty"`
	AttemptedAt   time.Time `db:"attempted_at" json:"attempted_at"`
	types.BaseModel
}
