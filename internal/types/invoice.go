package types

// InvoiceStatus is the lifecycle state of an invoice. Finalized invoices are
// immutable except for transitions to paid or voided and settlement linkage.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusFinalized InvoiceStatus = "finalized"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusVoided    InvoiceStatus = "voided"
)

// InvoiceType tags the origin of an invoice. Types beyond subscription and
// one_off flow through the same assembler and only differ as metadata.
type InvoiceType string

const (
	InvoiceTypeSubscription       InvoiceType = "subscription"
	InvoiceTypeOneOff             InvoiceType = "one_off"
	InvoiceTypeProgressiveBilling InvoiceType = "progressive_billing"
)

// FeeType classifies invoice line items
type FeeType string

const (
	FeeTypeCharge       FeeType = "charge"
	FeeTypeSubscription FeeType = "subscription"
	FeeTypeAddOn        FeeType = "add_on"
	FeeTypeCredit       FeeType = "credit"
	FeeTypeCommitment   FeeType = "commitment"
)

// feeTypeOrder fixes the ordering of fees within an invoice
var feeTypeOrder = map[FeeType]int{
	FeeTypeSubscription: 0,
	FeeTypeCharge:       1,
	FeeTypeAddOn:        2,
	FeeTypeCommitment:   3,
	FeeTypeCredit:       4,
}

func (t FeeType) Order() int {
	if o, ok := feeTypeOrder[t]; ok {
		return o
	}
	return len(feeTypeOrder)
}

// PaymentStatus tracks settlement of a fee or payment request
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// SettlementSourceType is the kind of source that settled part of an invoice
type SettlementSourceType string

const (
	SettlementSourcePayment    SettlementSourceType = "payment"
	SettlementSourceCreditNote SettlementSourceType = "credit_note"
	SettlementSourceWallet     SettlementSourceType = "wallet_credit"
)
