package types

import (
	"context"
	"fmt"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID      ContextKey = "ctx_request_id"
	CtxTenantID       ContextKey = "ctx_tenant_id"
	CtxUserID         ContextKey = "ctx_user_id"
	CtxIdempotencyKey ContextKey = "ctx_idempotency_key"
	CtxPortalCustomer ContextKey = "ctx_portal_customer"
	CtxDBTransaction  ContextKey = "ctx_db_transaction"

	// Default values
	DefaultTenantID = "00000000-0000-0000-0000-000000000000"
	DefaultUserID   = "00000000-0000-0000-0000-000000000000"

	// HTTP headers the middleware chain reads and writes
	HeaderRequestID      = "X-Request-ID"
	HeaderAuthorization  = "Authorization"
	HeaderAPIKey         = "X-API-Key"
	HeaderOrganizationID = "X-Organization-Id"
	HeaderIdempotencyKey = "Idempotency-Key"
	// Marks a response served from the recorded outcome of an earlier
	// call with the same Idempotency-Key
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(CtxTenantID).(string); ok {
		return tenantID
	}
	return ""
}

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetIdempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(CtxIdempotencyKey).(string); ok {
		return key
	}
	return ""
}

// GetPortalCustomerID returns the customer ID bound to a portal token, if any
func GetPortalCustomerID(ctx context.Context) string {
	if customerID, ok := ctx.Value(CtxPortalCustomer).(string); ok {
		return customerID
	}
	return ""
}

// SetTenantID sets the tenant ID in the context
func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, CtxTenantID, tenantID)
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// ValidateTenantContext validates that the required tenant context fields are present
func ValidateTenantContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is nil")
	}

	if GetTenantID(ctx) == "" {
		return fmt.Errorf("no tenant context found in context")
	}

	return nil
}
