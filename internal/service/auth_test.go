package service

import (
	"strings"
	"testing"
	"time"

	"github.com/billix/billix/internal/domain/customer"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/stretchr/testify/suite"
)

type AuthServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AuthService
}

func TestAuthService(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.GetConfig().Auth.PortalJWTSecret = "portal-test-secret"
	s.service = NewAuthService(newServiceParams(&s.BaseServiceTestSuite))

	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), &customer.Customer{
		ID:         "cust-1",
		ExternalID: "ext-1",
		Name:       "Globex",
		Currency:   "usd",
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *AuthServiceSuite) TestCreateAndAuthenticateAPIKey() {
	key, plaintext, err := s.service.CreateAPIKey(s.GetContext(), "ci", nil)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(plaintext, types.UUID_PREFIX_API_KEY+"_"))
	// the plaintext never hits storage
	s.NotContains(key.HashedKey, plaintext)

	got, err := s.service.AuthenticateAPIKey(s.GetContext(), plaintext)
	s.NoError(err)
	s.Equal(key.ID, got.ID)

	_, err = s.service.AuthenticateAPIKey(s.GetContext(), "bx_key_bogus")
	s.Error(err)
}

func (s *AuthServiceSuite) TestRevokedKeyRejected() {
	key, plaintext, err := s.service.CreateAPIKey(s.GetContext(), "ci", nil)
	s.Require().NoError(err)

	s.NoError(s.service.RevokeAPIKey(s.GetContext(), key.ID))

	_, err = s.service.AuthenticateAPIKey(s.GetContext(), plaintext)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *AuthServiceSuite) TestExpiredKeyRejected() {
	expired := time.Now().UTC().Add(-time.Hour)
	_, plaintext, err := s.service.CreateAPIKey(s.GetContext(), "old", &expired)
	s.Require().NoError(err)

	_, err = s.service.AuthenticateAPIKey(s.GetContext(), plaintext)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *AuthServiceSuite) TestPortalTokenRoundTrip() {
	token, err := s.service.IssuePortalToken(s.GetContext(), "cust-1")
	s.Require().NoError(err)

	claims, err := s.service.VerifyPortalToken(token)
	s.NoError(err)
	s.Equal("cust-1", claims.CustomerID)
	s.Equal(types.DefaultTenantID, claims.TenantID)
}

func (s *AuthServiceSuite) TestPortalTokenTamperRejected() {
	token, err := s.service.IssuePortalToken(s.GetContext(), "cust-1")
	s.Require().NoError(err)

	_, err = s.service.VerifyPortalToken(token + "x")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *AuthServiceSuite) TestPortalTokenRequiresSecret() {
	s.GetConfig().Auth.PortalJWTSecret = ""

	_, err := s.service.IssuePortalToken(s.GetContext(), "cust-1")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *AuthServiceSuite) TestPortalTokenUnknownCustomer() {
	_, err := s.service.IssuePortalToken(s.GetContext(), "cust-missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
