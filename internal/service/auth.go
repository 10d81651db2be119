package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/billix/billix/internal/domain/auth"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/golang-jwt/jwt/v4"
)

const portalTokenLifetime = 12 * time.Hour

type AuthService interface {
	// CreateAPIKey mints a new key and returns the plaintext once. Only
	// the SHA-256 hash is stored.
	CreateAPIKey(ctx context.Context, name string, expiresAt *time.Time) (*auth.APIKey, string, error)

	// AuthenticateAPIKey resolves a plaintext key to its row, enforcing
	// status and expiry, and stamps last_used_at
	AuthenticateAPIKey(ctx context.Context, plaintext string) (*auth.APIKey, error)

	RevokeAPIKey(ctx context.Context, id string) error
	ListAPIKeys(ctx context.Context) ([]*auth.APIKey, error)

	// IssuePortalToken signs a short-lived JWT scoping requests to one
	// customer
	IssuePortalToken(ctx context.Context, customerID string) (string, error)
	VerifyPortalToken(tokenString string) (*PortalClaims, error)
}

// PortalClaims is the JWT payload of a customer portal token
type PortalClaims struct {
	CustomerID string `json:"customer_id"`
	TenantID   string `json:"tenant_id"`
	jwt.RegisteredClaims
}

type authService struct {
	ServiceParams
}

func NewAuthService(params ServiceParams) AuthService {
	return &authService{ServiceParams: params}
}

func (s *authService) CreateAPIKey(ctx context.Context, name string, expiresAt *time.Time) (*auth.APIKey, string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", ierr.WithError(err).
			WithHint("Failed to generate API key").
			Mark(ierr.ErrSystem)
	}
	plaintext := fmt.Sprintf("%s_%s", types.UUID_PREFIX_API_KEY, hex.EncodeToString(raw))

	key := &auth.APIKey{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_API_KEY),
		Name:      name,
		HashedKey: auth.HashKey(plaintext),
		ExpiresAt: expiresAt,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	if err := s.AuthRepo.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, plaintext, nil
}

func (s *authService) AuthenticateAPIKey(ctx context.Context, plaintext string) (*auth.APIKey, error) {
	hashed := auth.HashKey(plaintext)

	// The hash→key mapping is hot on every request; cache it briefly
	if cached, ok := s.Cache.Get(ctx, apiKeyCacheKey(hashed)); ok {
		if key, ok := cached.(*auth.APIKey); ok && key.IsValid(timeNow()) {
			return key, nil
		}
	}

	key, err := s.AuthRepo.GetAPIKeyByHash(ctx, hashed)
	if err != nil {
		return nil, err
	}
	if !key.IsValid(timeNow()) {
		return nil, ierr.NewError("api key is expired or revoked").
			WithHint("The API key is no longer valid").
			Mark(ierr.ErrPermissionDenied)
	}

	if err := s.AuthRepo.UpdateLastUsed(ctx, key.ID, timeNow()); err != nil {
		s.Logger.Warnw("failed to stamp api key usage", "error", err, "key_id", key.ID)
	}
	s.Cache.Set(ctx, apiKeyCacheKey(hashed), key, 5*time.Minute)
	return key, nil
}

func (s *authService) RevokeAPIKey(ctx context.Context, id string) error {
	return s.AuthRepo.RevokeAPIKey(ctx, id)
}

func (s *authService) ListAPIKeys(ctx context.Context) ([]*auth.APIKey, error) {
	return s.AuthRepo.ListAPIKeys(ctx)
}

func (s *authService) IssuePortalToken(ctx context.Context, customerID string) (string, error) {
	if s.Config.Auth.PortalJWTSecret == "" {
		return "", ierr.NewError("portal tokens are not configured").
			WithHint("Set the portal JWT secret to enable customer portal tokens").
			Mark(ierr.ErrInvalidOperation)
	}
	if _, err := s.CustomerRepo.Get(ctx, customerID); err != nil {
		return "", err
	}

	now := timeNow()
	claims := &PortalClaims{
		CustomerID: customerID,
		TenantID:   types.GetTenantID(ctx),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(portalTokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.Config.Auth.PortalJWTSecret))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to sign portal token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}

func (s *authService) VerifyPortalToken(tokenString string) (*PortalClaims, error) {
	claims := &PortalClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.Config.Auth.PortalJWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ierr.NewError("invalid portal token").
			WithHint("The portal token is invalid or expired").
			Mark(ierr.ErrPermissionDenied)
	}
	return claims, nil
}

func apiKeyCacheKey(hashed string) string {
	return "apikey:" + hashed
}
