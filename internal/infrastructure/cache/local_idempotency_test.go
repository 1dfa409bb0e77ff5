package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newLocal(t *testing.T) *LocalIdempotency {
	t.Helper()
	l := NewLocalIdempotency(time.Hour)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLocalIdempotency_Lifecycle(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()
	key := "checkout:u1:k1"

	ok, err := l.Reserve(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	_, done, err := l.Result(ctx, key)
	require.NoError(t, err)
	assert.False(t, done, "pending key has no result")

	ok, _ = l.Reserve(ctx, key, time.Hour)
	assert.False(t, ok)

	require.NoError(t, l.Complete(ctx, key, "order-1", time.Hour))
	result, done, err := l.Result(ctx, key)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "order-1", result)
}

func TestLocalIdempotency_Release(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	_, _ = l.Reserve(ctx, "pending", time.Hour)
	require.NoError(t, l.Release(ctx, "pending"))
	ok, _ := l.Reserve(ctx, "pending", time.Hour)
	assert.True(t, ok, "released key is free again")

	_, _ = l.Reserve(ctx, "finished", time.Hour)
	require.NoError(t, l.Complete(ctx, "finished", "order-2", time.Hour))
	require.NoError(t, l.Release(ctx, "finished"))
	result, done, _ := l.Result(ctx, "finished")
	assert.True(t, done)
	assert.Equal(t, "order-2", result)

	assert.NoError(t, l.Release(ctx, "unknown"))
}

func TestLocalIdempotency_ExpiryAndSweep(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }

	require.NoError(t, l.Complete(ctx, "k", "order", time.Minute))
	now = now.Add(time.Minute)

	_, done, _ := l.Result(ctx, "k")
	assert.False(t, done, "a result expires at its ttl")
	ok, _ := l.Reserve(ctx, "k", time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 1, l.Len())

	now = now.Add(time.Minute)
	l.sweep()
	assert.Zero(t, l.Len())
}

func TestLocalIdempotency_SingleWinner(t *testing.T) {
	l := newLocal(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Reserve(context.Background(), "contended", time.Hour); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestLocalIdempotency_CloseStopsSweeper(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := NewLocalIdempotency(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}
