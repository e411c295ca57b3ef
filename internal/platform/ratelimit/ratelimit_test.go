// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter_Window(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewRedisLimiter(client, 2, time.Minute, "test:")
	require.NoError(t, err)
	ctx := context.Background()

	for range 2 {
		allowed, _, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Positive(t, retryAfter)

	// Other callers keep their own budget.
	allowed, _, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	// A new window opens once the key expires.
	server.FastForward(time.Minute + time.Second)
	allowed, _, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_RejectsBadPolicy(t *testing.T) {
	_, err := NewRedisLimiter(nil, 0, time.Minute, "")
	assert.Error(t, err)
	_, err = NewRedisLimiter(nil, 5, 0, "")
	assert.Error(t, err)
}

func TestRedisLimiter_ReportsBackendFailure(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewRedisLimiter(client, 2, time.Minute, "test:")
	require.NoError(t, err)

	server.Close()
	_, _, err = limiter.Allow(context.Background(), "ip")
	assert.Error(t, err)
}

func TestMemoryLimiter_Window(t *testing.T) {
	limiter := NewMemoryLimiter(2, time.Minute)
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }
	ctx := context.Background()

	allowed, _, _ := limiter.Allow(ctx, "ip")
	assert.True(t, allowed)
	allowed, _, _ = limiter.Allow(ctx, "ip")
	assert.True(t, allowed)

	allowed, retryAfter, _ := limiter.Allow(ctx, "ip")
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)

	current = current.Add(time.Minute + time.Second)
	allowed, _, _ = limiter.Allow(ctx, "ip")
	assert.True(t, allowed)
}
