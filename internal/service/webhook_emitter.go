package service

import (
	"context"
	"time"

	"github.com/billix/billix/internal/types"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// publishWebhookEvent drops an event on the webhook outbox. Failures are
// logged and never propagate into the business transaction that fired them.
func publishWebhookEvent(ctx context.Context, params ServiceParams, eventName, objectType, objectID string) {
	if params.WebhookPublisher == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{"id": objectID})
	if err != nil {
		params.Logger.Errorw("failed to marshal webhook payload",
			"error", err,
			"event_name", eventName,
			"object_id", objectID,
		)
		return
	}

	event := &types.WebhookEvent{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName:  eventName,
		TenantID:   types.GetTenantID(ctx),
		UserID:     types.GetUserID(ctx),
		ObjectType: objectType,
		ObjectID:   objectID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
	if err := params.WebhookPublisher.PublishWebhook(ctx, event); err != nil {
		params.Logger.Errorw("failed to publish webhook event",
			"error", err,
			"event_name", eventName,
			"object_id", objectID,
		)
	}
}
