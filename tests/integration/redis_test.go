package integration

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedis_Revocations(t *testing.T) {
	client := StartRedis(t)
	ctx := context.Background()
	rev := auth.NewRedisRevocations(client)

	jti, userID := uuid.NewString(), uuid.NewString()
	issued := time.Now().Add(-time.Minute)

	revoked, err := rev.Revoked(ctx, jti, userID, issued)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, rev.RevokeToken(ctx, jti, time.Minute))
	revoked, err = rev.Revoked(ctx, jti, userID, issued)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, "storefront:revoked:jti:"+jti).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

	other := uuid.NewString()
	require.NoError(t, rev.RevokeUser(ctx, userID, time.Hour))
	revoked, err = rev.Revoked(ctx, other, userID, issued)
	require.NoError(t, err)
	assert.True(t, revoked, "tokens issued before the cutoff are rejected")

	revoked, err = rev.Revoked(ctx, other, userID, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedis_IdempotencyStore(t *testing.T) {
	client := StartRedis(t)
	ctx := context.Background()
	store := cache.NewRedisIdempotencyStore(client)

	ok, err := store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a pending key cannot be reserved twice")

	_, done, err := store.Result(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.Complete(ctx, "k1", "order-42", time.Minute))
	result, done, err := store.Result(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "order-42", result)

	require.NoError(t, store.Release(ctx, "k1"))
	_, done, err = store.Result(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, done, "release keeps completed keys")

	ok, err = store.Reserve(ctx, "k2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "k2"))
	ok, err = store.Reserve(ctx, "k2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released reservations can be claimed again")
}

func TestRedis_ProductCache(t *testing.T) {
	client := StartRedis(t)
	ctx := context.Background()
	c := cache.NewRedisProductCache(client, time.Minute, zap.NewNop())

	var loads atomic.Int32
	load := func(context.Context) (*catalogapp.ProductResponse, error) {
		loads.Add(1)
		return &catalogapp.ProductResponse{ID: uuid.New(), Name: "Cached Mug", Slug: "cached-mug"}, nil
	}

	first, err := c.Fetch(ctx, "slug:cached-mug", load)
	require.NoError(t, err)
	second, err := c.Fetch(ctx, "slug:cached-mug", load)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, loads.Load())

	require.NoError(t, c.Invalidate(ctx, "slug:cached-mug"))
	_, err = c.Fetch(ctx, "slug:cached-mug", load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, loads.Load())
}

func TestRedis_RateLimiterSharedAcrossInstances(t *testing.T) {
	client := StartRedis(t)
	ctx := context.Background()

	a := middleware.NewRedisRateLimiter(client, "auth", 3, time.Hour)
	b := middleware.NewRedisRateLimiter(client, "auth", 3, time.Hour)

	for i := 0; i < 3; i++ {
		limiter := a
		if i%2 == 1 {
			limiter = b
		}
		ok, _, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, remaining, err := b.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	ok, _, err = a.Allow(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, ok, "other clients have their own counter")
}

func TestRedis_StorefrontFlow(t *testing.T) {
	client := StartRedis(t)
	srv := newFlowServer(t, WithRedis(client))
	item := srv.CreateProduct("Redis Mug", "REDIS-001", "15.00", 4)

	session := srv.Register("redis@example.com")
	token := session.Token.AccessToken

	w := srv.Do(Request{
		Method: http.MethodPost,
		Path:   "/cart/items",
		Token:  token,
		Body:   handler.AddCartItemRequest{ProductID: item.ID, Quantity: 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	checkout := Request{
		Method:  http.MethodPost,
		Path:    "/orders/checkout",
		Token:   token,
		Headers: map[string]string{middleware.IdempotencyKeyHeader: "redis-key"},
		Body:    handler.CheckoutRequest{ShippingAddress: shippingAddress()},
	}
	require.Equal(t, http.StatusCreated, srv.Do(checkout).Code)
	require.Equal(t, http.StatusCreated, srv.Do(checkout).Code)
	assert.Equal(t, 3, srv.Stock(item.ID))

	w = srv.Do(Request{Method: http.MethodPost, Path: "/auth/logout", Token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = srv.Do(Request{Method: http.MethodGet, Path: "/auth/me", Token: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "the Redis revocation list rejects logged out tokens")
}
