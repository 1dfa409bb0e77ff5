package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	t.Cleanup(rl.Stop)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	allowed, remaining, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)

	allowed, remaining, _ = rl.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, _ = rl.Allow(ctx, "10.0.0.1")
	assert.False(t, allowed)

	allowed, _, _ = rl.Allow(ctx, "10.0.0.2")
	assert.True(t, allowed, "keys are independent")

	now = now.Add(time.Minute)
	allowed, remaining, _ = rl.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed, "window resets")
	assert.Equal(t, 1, remaining)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(1, time.Second)
	rl.Stop()
	rl.Stop()
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (bool, int, error) {
	return true, 5, errors.New("redis down")
}
func (erroringLimiter) Limit() int { return 5 }

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	t.Cleanup(rl.Stop)

	r := gin.New()
	r.Use(RequestID(), RateLimit(rl, nil))
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, errorCode(t, rec))
}

func TestRateLimitByKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	t.Cleanup(rl.Stop)

	r := gin.New()
	r.Use(RateLimitByKey(rl, nil, GetSessionID))
	r.GET("/cart", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(session string) int {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set(SessionIDHeader, session)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusOK, do("b"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(erroringLimiter{}, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
