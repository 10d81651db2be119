package tenant

import (
	"github.com/billix/billix/internal/types"
	ierr "github.com/billix/billix/internal/errors"
)

// Tenant is the organization root. Every business entity is scoped by its
// tenant and every query must filter by it.
type Tenant struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	// InvoicePrefix is prepended to generated invoice numbers,
	// ex ACME-202608-0042
	InvoicePrefix string `db:"invoice_prefix" json:"invoice_prefix"`

	// WebhookSecret signs outbound webhook payloads when an endpoint does
	// not carry its own secret
	WebhookSecret string `db:"webhook_secret" json:"-"`

	// RateLimitPerMinute overrides the default event ingestion budget
	RateLimitPerMinute int `db:"rate_limit_per_minute" json:"rate_limit_per_minute"`

	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

func (t *Tenant) Validate() error {
	if t.Name == "" {
		return ierr.NewError("name is required").
			WithHint("Tenant name is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
