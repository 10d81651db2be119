package types

// CreditNoteStatus is the lifecycle of a credit note
type CreditNoteStatus string

const (
	CreditNoteStatusDraft     CreditNoteStatus = "draft"
	CreditNoteStatusFinalized CreditNoteStatus = "finalized"
)

// CreditNoteType distinguishes post-invoice credits from mid-period
// progressive-billing offsets
type CreditNoteType string

const (
	CreditNoteTypeRefund CreditNoteType = "refund"
	CreditNoteTypeCredit CreditNoteType = "credit"
	CreditNoteTypeOffset CreditNoteType = "offset"
)

// CreditStatus tracks the reusable-balance half of a credit note
type CreditStatus string

const (
	CreditStatusAvailable CreditStatus = "available"
	CreditStatusConsumed  CreditStatus = "consumed"
	CreditStatusVoided    CreditStatus = "voided"
)

// RefundStatus tracks the cash-back half of a credit note
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)
