package types

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusPending    SubscriptionStatus = "pending"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusTerminated SubscriptionStatus = "terminated"
)

// BillingTime anchors the billing period either to calendar boundaries or
// to the subscription start date
type BillingTime string

const (
	BillingTimeCalendar    BillingTime = "calendar"
	BillingTimeAnniversary BillingTime = "anniversary"
)

// BillingPeriod is the plan interval
type BillingPeriod string

const (
	BILLING_PERIOD_WEEKLY    BillingPeriod = "weekly"
	BILLING_PERIOD_MONTHLY   BillingPeriod = "monthly"
	BILLING_PERIOD_QUARTERLY BillingPeriod = "quarterly"
	BILLING_PERIOD_YEARLY    BillingPeriod = "yearly"
)

func (p BillingPeriod) Validate() bool {
	switch p {
	case BILLING_PERIOD_WEEKLY, BILLING_PERIOD_MONTHLY,
		BILLING_PERIOD_QUARTERLY, BILLING_PERIOD_YEARLY:
		return true
	}
	return false
}

// OnTerminationAction decides what happens to the in-flight period when a
// subscription is terminated
type OnTerminationAction string

const (
	OnTerminationGenerateInvoice OnTerminationAction = "generate_invoice"
	OnTerminationSkipInvoice     OnTerminationAction = "skip_invoice"
)
