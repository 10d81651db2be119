package types

// WalletStatus is the lifecycle state of a wallet. Termination is a
// soft-delete, the balance is preserved for audit.
type WalletStatus string

const (
	WalletStatusActive     WalletStatus = "active"
	WalletStatusTerminated WalletStatus = "terminated"
)

// TransactionType is the direction of a wallet transaction
type TransactionType string

const (
	TransactionTypeInbound  TransactionType = "inbound"
	TransactionTypeOutbound TransactionType = "outbound"
)

// TransactionStatus is the settlement state of a wallet transaction.
// Outbound transactions tied to an invoice stay pending until the invoice
// finalizes.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSettled TransactionStatus = "settled"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// TransactionReason is the semantic meaning of a wallet transaction
type TransactionReason string

const (
	TransactionReasonPurchased TransactionReason = "purchased"
	TransactionReasonGranted   TransactionReason = "granted"
	TransactionReasonVoided    TransactionReason = "voided"
	TransactionReasonInvoiced  TransactionReason = "invoiced"
)

// TransactionSource records what initiated the transaction
type TransactionSource string

const (
	TransactionSourceManual    TransactionSource = "manual"
	TransactionSourceInterval  TransactionSource = "interval"
	TransactionSourceThreshold TransactionSource = "threshold"
)
