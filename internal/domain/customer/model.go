package customer

import (
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

// Customer represents a billable account within a tenant
type Customer struct {
	ID string `db:"id" json:"id"`

	// ExternalID is the identifier of the customer in the caller's system,
	// unique per tenant. Events reference customers by this ID.
	ExternalID string `db:"external_id" json:"external_id"`

	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email,omitempty"`

	// Currency is the lowercase 3 letter ISO-4217 code all of the
	// customer's invoices and wallets are denominated in
	Currency string `db:"currency" json:"currency"`

	// Timezone used for display purposes only, all stored timestamps are UTC
	Timezone string `db:"timezone" json:"timezone,omitempty"`

	// InvoiceGracePeriod is the number of days added to the issue date of
	// generated invoices
	InvoiceGracePeriod int `db:"invoice_grace_period" json:"invoice_grace_period"`

	// NetPaymentTerm is the number of days between issue date and due date
	NetPaymentTerm int `db:"net_payment_term" json:"net_payment_term"`

	// DunningCampaignID opts the customer into a specific campaign; empty
	// falls back to the tenant's campaign applied to the organization
	DunningCampaignID string `db:"dunning_campaign_id" json:"dunning_campaign_id,omitempty"`

	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

func (c *Customer) Validate() error {
	if c.ExternalID == "" {
		return ierr.NewError("external_id is required").
			WithHint("External ID is required").
			Mark(ierr.ErrValidation)
	}
	if len(c.Currency) != 3 {
		return ierr.NewError("invalid currency").
			WithHintf("Currency must be a 3 letter ISO code, got %s", c.Currency).
			Mark(ierr.ErrValidation)
	}
	return nil
}
