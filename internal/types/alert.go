package types

// UsageAlertStatus mirrors whether the alert keeps evaluating
type UsageAlertStatus string

const (
	UsageAlertStatusActive   UsageAlertStatus = "active"
	UsageAlertStatusDisabled UsageAlertStatus = "disabled"
)
