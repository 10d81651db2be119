package types

import "time"

// Webhook event names emitted by the engine
const (
	WebhookEventInvoiceCreated        = "invoice.created"
	WebhookEventInvoiceFinalized      = "invoice.finalized"
	WebhookEventInvoicePaid           = "invoice.paid"
	WebhookEventInvoiceVoided         = "invoice.voided"
	WebhookEventPaymentRequestCreated = "payment_request.created"
	WebhookEventPaymentRequestFailed  = "payment_request.failed"
	WebhookEventUsageAlertTriggered   = "usage_alert.triggered"
	WebhookEventWalletTerminated      = "wallet.terminated"
	WebhookEventWalletDepleted        = "wallet.depleted"
	WebhookEventSubscriptionActivated = "subscription.activated"
)

// WebhookEvent is the internal outbox message published to the dispatcher.
// The dispatcher resolves the payload builder by EventName.
type WebhookEvent struct {
	ID         string    `json:"event_id"`
	EventName  string    `json:"event_name"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	ObjectType string    `json:"object_type"`
	ObjectID   string    `json:"object_id"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    []byte    `json:"payload"`
}

// PubSubType selects the transport backing the webhook outbox
type PubSubType string

const (
	MemoryPubSub PubSubType = "memory"
	KafkaPubSub  PubSubType = "kafka"
)

// WebhookStatus is the delivery state of an outbox row
type WebhookStatus string

const (
	WebhookStatusPending WebhookStatus = "pending"
	WebhookStatusSuccess WebhookStatus = "success"
	WebhookStatusFailed  WebhookStatus = "failed"
)

// WebhookEndpointStatus gates delivery per endpoint
type WebhookEndpointStatus string

const (
	WebhookEndpointStatusActive   WebhookEndpointStatus = "active"
	WebhookEndpointStatusDisabled WebhookEndpointStatus = "disabled"
)
