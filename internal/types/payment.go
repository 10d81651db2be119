package types

// PaymentRequestStatus is the collection state of a grouped payment request
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending   PaymentRequestStatus = "pending"
	PaymentRequestStatusSucceeded PaymentRequestStatus = "succeeded"
	PaymentRequestStatusFailed    PaymentRequestStatus = "failed"
)
