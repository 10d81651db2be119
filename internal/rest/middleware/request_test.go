package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/billix/billix/internal/cache"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type IdempotencyMiddlewareSuite struct {
	suite.Suite
	engine *gin.Engine
	calls  int
	fail   bool
}

func TestIdempotencyMiddleware(t *testing.T) {
	suite.Run(t, new(IdempotencyMiddlewareSuite))
}

func (s *IdempotencyMiddlewareSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.calls = 0
	s.fail = false

	log, err := logger.NewLogger(&config.Configuration{
		Logging: config.LoggingConfig{Level: types.LogLevelInfo},
	})
	s.Require().NoError(err)

	s.engine = gin.New()
	s.engine.Use(func(c *gin.Context) {
		tenant := c.GetHeader("X-Test-Tenant")
		if tenant == "" {
			tenant = "tenant-1"
		}
		c.Request = c.Request.WithContext(types.SetTenantID(c.Request.Context(), tenant))
		c.Next()
	})
	s.engine.Use(IdempotencyMiddleware(cache.NewInMemoryCache(log), log))
	s.engine.POST("/widgets", func(c *gin.Context) {
		s.calls++
		if s.fail {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad widget"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": fmt.Sprintf("widget-%d", s.calls)})
	})
}

func (s *IdempotencyMiddlewareSuite) post(headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/widgets", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *IdempotencyMiddlewareSuite) TestReplaySameKey() {
	first := s.post(map[string]string{types.HeaderIdempotencyKey: "op-1"})
	s.Equal(http.StatusCreated, first.Code)
	s.Empty(first.Header().Get(types.HeaderIdempotencyReplayed))

	second := s.post(map[string]string{types.HeaderIdempotencyKey: "op-1"})
	s.Equal(http.StatusCreated, second.Code)
	s.Equal("true", second.Header().Get(types.HeaderIdempotencyReplayed))
	s.Equal(first.Body.String(), second.Body.String())

	// the handler only ran once
	s.Equal(1, s.calls)
}

func (s *IdempotencyMiddlewareSuite) TestDistinctKeysRunHandler() {
	s.post(map[string]string{types.HeaderIdempotencyKey: "op-1"})
	w := s.post(map[string]string{types.HeaderIdempotencyKey: "op-2"})
	s.Empty(w.Header().Get(types.HeaderIdempotencyReplayed))
	s.Equal(2, s.calls)
}

func (s *IdempotencyMiddlewareSuite) TestKeysAreTenantScoped() {
	s.post(map[string]string{types.HeaderIdempotencyKey: "op-1"})
	w := s.post(map[string]string{
		types.HeaderIdempotencyKey: "op-1",
		"X-Test-Tenant":            "tenant-2",
	})
	s.Empty(w.Header().Get(types.HeaderIdempotencyReplayed))
	s.Equal(2, s.calls)
}

func (s *IdempotencyMiddlewareSuite) TestWithoutKeyEveryCallRuns() {
	s.post(nil)
	s.post(nil)
	s.Equal(2, s.calls)
}

func (s *IdempotencyMiddlewareSuite) TestFailuresAreNotRecorded() {
	s.fail = true
	w := s.post(map[string]string{types.HeaderIdempotencyKey: "op-1"})
	s.Equal(http.StatusBadRequest, w.Code)

	// the retry reaches the handler instead of replaying the error
	s.fail = false
	w = s.post(map[string]string{types.HeaderIdempotencyKey: "op-1"})
	s.Equal(http.StatusCreated, w.Code)
	s.Empty(w.Header().Get(types.HeaderIdempotencyReplayed))
	s.Equal(2, s.calls)
}

func (s *IdempotencyMiddlewareSuite) TestKeyReachesRequestContext() {
	var seen string
	s.engine.POST("/ctx", func(c *gin.Context) {
		seen = types.GetIdempotencyKey(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/ctx", nil)
	req.Header.Set(types.HeaderIdempotencyKey, "op-ctx")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	s.Equal("op-ctx", seen)
}
