package types

// TaxableType is the discriminator for polymorphic applied taxes
type TaxableType string

const (
	TaxableTypeInvoice  TaxableType = "invoice"
	TaxableTypeFee      TaxableType = "fee"
	TaxableTypeCustomer TaxableType = "customer"
	TaxableTypeTenant   TaxableType = "tenant"
)
