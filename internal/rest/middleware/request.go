package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/billix/billix/internal/cache"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware propagates the caller's request ID or mints one
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// How long a recorded response stays replayable
const idempotencyTTL = 24 * time.Hour

// idempotentResponse is the recorded outcome of the first successful call
type idempotentResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware makes mutating calls carrying an Idempotency-Key
// header safe to retry: the first 2xx response per (tenant, method, route,
// key) is recorded, and later calls with the same key get that response
// back with Idempotency-Replayed: true instead of re-running the handler.
// The key is also lifted into the request context so write paths can dedupe
// at the store level.
func IdempotencyMiddleware(store cache.Cache, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(types.HeaderIdempotencyKey)
		if key == "" || c.Request.Method == http.MethodGet ||
			c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		ctx := context.WithValue(c.Request.Context(), types.CtxIdempotencyKey, key)
		c.Request = c.Request.WithContext(ctx)

		cacheKey := cache.GenerateKey(cache.PrefixIdempotency,
			types.GetTenantID(ctx), c.Request.Method, c.FullPath(), key)

		if cached, ok := store.Get(ctx, cacheKey); ok {
			if resp, ok := cached.(*idempotentResponse); ok {
				log.Debugw("replaying idempotent response",
					"idempotency_key", key, "path", c.FullPath())
				c.Header(types.HeaderIdempotencyReplayed, "true")
				c.Data(resp.Status, resp.ContentType, resp.Body)
				c.Abort()
				return
			}
		}

		w := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		// Only successful outcomes are replayable; errors may be retried
		status := w.Status()
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			store.Set(ctx, cacheKey, &idempotentResponse{
				Status:      status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        w.body.Bytes(),
			}, idempotencyTTL)
		}
	}
}
