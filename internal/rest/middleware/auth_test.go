package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/auth"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

const (
	validAPIKey      = "bxb_0123456789abcdef"
	validPortalToken = "portal-token"
)

// stubAuthService resolves one known API key and one known portal token
type stubAuthService struct {
	key *auth.APIKey
}

func (s *stubAuthService) CreateAPIKey(ctx context.Context, name string, expiresAt *time.Time) (*auth.APIKey, string, error) {
	return nil, "", nil
}

func (s *stubAuthService) AuthenticateAPIKey(ctx context.Context, plaintext string) (*auth.APIKey, error) {
	if plaintext == validAPIKey {
		return s.key, nil
	}
	return nil, ierr.NewError("api key not found").
		WithHint("API key not found").
		Mark(ierr.ErrNotFound)
}

func (s *stubAuthService) RevokeAPIKey(ctx context.Context, id string) error { return nil }

func (s *stubAuthService) ListAPIKeys(ctx context.Context) ([]*auth.APIKey, error) {
	return nil, nil
}

func (s *stubAuthService) IssuePortalToken(ctx context.Context, customerID string) (string, error) {
	return "", nil
}

func (s *stubAuthService) VerifyPortalToken(tokenString string) (*service.PortalClaims, error) {
	if tokenString == validPortalToken {
		return &service.PortalClaims{CustomerID: "cust-9", TenantID: "tenant-portal"}, nil
	}
	return nil, ierr.NewError("invalid portal token").
		WithHint("The portal token is invalid or expired").
		Mark(ierr.ErrPermissionDenied)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	engine *gin.Engine
}

func TestAuthMiddleware(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	log, err := logger.NewLogger(&config.Configuration{
		Logging: config.LoggingConfig{Level: types.LogLevelInfo},
	})
	s.Require().NoError(err)

	authSvc := &stubAuthService{
		key: &auth.APIKey{
			ID:        "key-1",
			Name:      "test key",
			BaseModel: types.BaseModel{TenantID: "tenant-1", Status: types.StatusPublished},
		},
	}

	s.engine = gin.New()
	s.engine.Use(AuthenticateMiddleware(&config.Configuration{}, authSvc, log))
	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant":   types.GetTenantID(c.Request.Context()),
			"customer": types.GetPortalCustomerID(c.Request.Context()),
		})
	})
}

func (s *AuthMiddlewareSuite) do(headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareSuite) TestBearerAPIKey() {
	w := s.do(map[string]string{
		types.HeaderAuthorization: "Bearer " + validAPIKey,
	})
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "tenant-1")
}

func (s *AuthMiddlewareSuite) TestAPIKeyHeaderAlias() {
	w := s.do(map[string]string{
		types.HeaderAPIKey: validAPIKey,
	})
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "tenant-1")
}

func (s *AuthMiddlewareSuite) TestBearerAPIKeyRejected() {
	w := s.do(map[string]string{
		types.HeaderAuthorization: "Bearer bxb_wrong",
	})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthMiddlewareSuite) TestBearerPortalToken() {
	w := s.do(map[string]string{
		types.HeaderAuthorization: "Bearer " + validPortalToken,
	})
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "tenant-portal")
	s.Contains(w.Body.String(), "cust-9")
}

func (s *AuthMiddlewareSuite) TestMissingCredentials() {
	w := s.do(nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthMiddlewareSuite) TestOrganizationHeaderMismatch() {
	w := s.do(map[string]string{
		types.HeaderAuthorization:  "Bearer " + validAPIKey,
		types.HeaderOrganizationID: "11111111-1111-1111-1111-111111111111",
	})
	s.Equal(http.StatusForbidden, w.Code)
}
