package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/types"
)

func TestTokenBucketLimiter_BurstThenDeny(t *testing.T) {
	l := NewTokenBucketLimiter(1, 3, 0)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("client")
		require.True(t, allowed, "request %d within burst should pass", i)
	}
	allowed, info := l.Allow("client")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 3, info.Limit)
}

func TestTokenBucketLimiter_RefillsOverTime(t *testing.T) {
	l := NewTokenBucketLimiter(100, 1, 0)

	allowed, _ := l.Allow("client")
	require.True(t, allowed)
	allowed, _ = l.Allow("client")
	require.False(t, allowed)

	// 100 tokens/s refills a full token within 10ms.
	time.Sleep(25 * time.Millisecond)
	allowed, _ = l.Allow("client")
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, 0)

	allowed, _ := l.Allow("alpha")
	require.True(t, allowed)
	allowed, _ = l.Allow("alpha")
	require.False(t, allowed)

	allowed, _ = l.Allow("beta")
	assert.True(t, allowed, "a saturated key must not affect another key")
	assert.Equal(t, 2, l.BucketCount())
}

func TestTokenBucketLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l := NewTokenBucketLimiter(1000, 2, 50*time.Millisecond)
	defer l.Stop()

	allowed, _ := l.Allow("idle")
	require.True(t, allowed)
	require.Equal(t, 1, l.BucketCount())

	// At 1000 tokens/s the bucket refills to capacity almost immediately,
	// so the sweep sees it as idle once the interval passes.
	assert.Eventually(t, func() bool {
		return l.BucketCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func rateLimitRouter(limiter RateLimiter, cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.Use(RateLimit(limiter, cfg))
	r.GET("/resource", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_AllowsWithinBudgetAndSetsHeaders(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.KeyFunc = func(*gin.Context) string { return "global" }
	limiter := NewTokenBucketLimiter(1, 5, 0)
	r := rateLimitRouter(limiter, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_ExceededReturns429Envelope(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.KeyFunc = func(*gin.Context) string { return "global" }
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	r := rateLimitRouter(limiter, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var resp types.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperrors.ErrCodeRateLimited.String(), resp.Error.Code)
	assert.NotEmpty(t, resp.RequestID)
}

func TestRateLimit_SkipPathsBypassLimiter(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.KeyFunc = func(*gin.Context) string { return "global" }
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	r := rateLimitRouter(limiter, cfg)

	// Exhaust the single token, then hammer a skipped path.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	require.Equal(t, http.StatusOK, w.Code)

	for i := 0; i < 5; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
