package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthenticateMiddleware authenticates requests by either:
// 1. API key, sent as `Authorization: Bearer bxb_...` or in the
//    X-API-Key header
// 2. Customer portal JWT in the Authorization header as a Bearer token
// It sets the tenant ID (and portal customer ID, when applicable) in the
// request context for downstream handlers.
func AuthenticateMiddleware(
	cfg *config.Configuration,
	authService service.AuthService,
	logger *logger.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		// API keys arrive as `Authorization: Bearer bxb_...`; X-API-Key is
		// kept as an alias. Bearer tokens without the key prefix are
		// treated as portal JWTs.
		apiKey := c.GetHeader(types.HeaderAPIKey)

		var bearer string
		if authHeader := c.GetHeader(types.HeaderAuthorization); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
				c.Abort()
				return
			}
			bearer = strings.TrimPrefix(authHeader, "Bearer ")
			if apiKey == "" && strings.HasPrefix(bearer, types.UUID_PREFIX_API_KEY+"_") {
				apiKey = bearer
			}
		}

		if apiKey != "" {
			key, err := authService.AuthenticateAPIKey(c.Request.Context(), apiKey)
			if err != nil {
				logger.Debugw("invalid api key", "error", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				c.Abort()
				return
			}

			// When the caller pins an organization, it must be well-formed
			// and match the key's tenant
			if orgID := c.GetHeader(types.HeaderOrganizationID); orgID != "" {
				if _, err := uuid.Parse(orgID); err != nil || orgID != key.TenantID {
					c.JSON(http.StatusForbidden, gin.H{"error": "Organization mismatch"})
					c.Abort()
					return
				}
			}

			ctx := c.Request.Context()
			ctx = context.WithValue(ctx, types.CtxTenantID, key.TenantID)
			ctx = context.WithValue(ctx, types.CtxUserID, key.ID)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		if bearer != "" {
			claims, err := authService.VerifyPortalToken(bearer)
			if err != nil {
				logger.Debugw("invalid portal token", "error", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}

			ctx := c.Request.Context()
			ctx = context.WithValue(ctx, types.CtxTenantID, claims.TenantID)
			ctx = context.WithValue(ctx, types.CtxPortalCustomer, claims.CustomerID)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		// Local development fallback; never enabled in production
		if cfg.Auth.AllowDefaultTenant {
			ctx := c.Request.Context()
			ctx = context.WithValue(ctx, types.CtxTenantID, types.DefaultTenantID)
			ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		c.Abort()
	}
}

// PortalOnlyMiddleware restricts a route group to portal-token requests
// scoped to a customer
func PortalOnlyMiddleware(c *gin.Context) {
	if types.GetPortalCustomerID(c.Request.Context()) == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Portal token required"})
		c.Abort()
		return
	}
	c.Next()
}
