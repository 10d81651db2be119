package types

// ScheduledTask names the periodic tasks driven by the scheduler
type ScheduledTask string

const (
	TaskPeriodicInvoicing ScheduledTask = "periodic_invoicing"
	TaskTrialExpiry       ScheduledTask = "trial_expiry"
	TaskDunningTick       ScheduledTask = "dunning_tick"
	TaskWebhookRetry      ScheduledTask = "webhook_retry"
)
