// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements fixed-window request counters keyed by caller.

Two backends share the [Limiter] contract:

  - [RedisLimiter]: one atomic Lua script per call, shared by every API process.
  - [MemoryLimiter]: a mutex-guarded map for single-process use and tests.

Both return the remaining time of the current window when a call is refused
so the HTTP layer can emit Retry-After.
*/
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more call for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// # Redis

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end

local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end

if current > tonumber(ARGV[1]) then
  return {0, ttl}
end
return {1, ttl}
`)

// RedisLimiter counts calls in Redis so every API replica shares the budget.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter validates the window policy and creates a [RedisLimiter].
func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, prefix string) (*RedisLimiter, error) {
	if limit <= 0 || window < time.Millisecond {
		return nil, errors.New("ratelimit: limit and window must be positive")
	}
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: prefix}, nil
}

// Allow implements [Limiter].
func (limiter *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	windowMS := limiter.window.Milliseconds()

	result, err := fixedWindowScript.Run(ctx, limiter.client, []string{limiter.prefix + key}, limiter.limit, windowMS).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: script failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("ratelimit: unexpected script reply %v", result)
	}

	retryAfter := max(time.Duration(result[1])*time.Millisecond, 0)
	return result[0] == 1, retryAfter, nil
}

// # Memory

type window struct {
	count int
	reset time.Time
}

// MemoryLimiter is an in-process [Limiter]. Expired windows are swept lazily
// once per window length.
type MemoryLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	entries     map[string]*window
	lastCleanup time.Time
	now         func() time.Time
}

// NewMemoryLimiter creates a [MemoryLimiter].
func NewMemoryLimiter(limit int, length time.Duration) *MemoryLimiter {
	return NewMemoryLimiterWithClock(limit, length, time.Now)
}

// NewMemoryLimiterWithClock creates a [MemoryLimiter] that reads the time from now.
func NewMemoryLimiterWithClock(limit int, length time.Duration, now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		limit:       limit,
		window:      length,
		entries:     make(map[string]*window),
		lastCleanup: now(),
		now:         now,
	}
}

// Allow implements [Limiter].
func (limiter *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.now()

	if now.Sub(limiter.lastCleanup) >= limiter.window {
		for k, entry := range limiter.entries {
			if now.After(entry.reset) {
				delete(limiter.entries, k)
			}
		}
		limiter.lastCleanup = now
	}

	entry, ok := limiter.entries[key]
	if !ok || now.After(entry.reset) {
		limiter.entries[key] = &window{count: 1, reset: now.Add(limiter.window)}
		return true, 0, nil
	}

	if entry.count >= limiter.limit {
		return false, max(entry.reset.Sub(now), 0), nil
	}

	entry.count++
	return true, 0, nil
}
