package payload

import (
	"context"
	"encoding/json"

	"github.com/billix/billix/internal/types"
)

// PayloadBuilder turns an outbox event into the JSON body delivered to
// endpoints
type PayloadBuilder interface {
	BuildPayload(ctx context.Context, event *types.WebhookEvent) (json.RawMessage, error)
}

// envelope is the common outer shape of every delivered payload
type envelope struct {
	EventName  string      `json:"event_name"`
	ObjectType string      `json:"object_type"`
	Timestamp  string      `json:"timestamp"`
	Data       interface{} `json:"data"`
}

func wrap(event *types.WebhookEvent, data interface{}) (json.RawMessage, error) {
	return json.Marshal(envelope{
		EventName:  event.EventName,
		ObjectType: event.ObjectType,
		Timestamp:  event.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Data:       data,
	})
}
