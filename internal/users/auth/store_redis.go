// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/feedbackhub/internal/platform/constants"
)

// verifyOTPScript performs count-then-compare as one atomic step.
//
// KEYS[1] code key, KEYS[2] attempts key. ARGV[1] submitted code,
// ARGV[2] attempt budget. Replies 0 matched, 1 mismatch, 2 missing,
// 3 exhausted (values of [OTPVerdict]).
var verifyOTPScript = redis.NewScript(`
local budget = tonumber(ARGV[2])
local attempts = tonumber(redis.call("GET", KEYS[2]) or "0")

if attempts >= budget then
  redis.call("DEL", KEYS[1])
  return 3
end

local stored = redis.call("GET", KEYS[1])
if not stored then
  return 2
end

attempts = redis.call("INCR", KEYS[2])
if redis.call("PTTL", KEYS[2]) < 0 then
  local ttl = redis.call("PTTL", KEYS[1])
  if ttl > 0 then
    redis.call("PEXPIRE", KEYS[2], ttl)
  end
end

if stored == ARGV[1] then
  redis.call("DEL", KEYS[1], KEYS[2])
  return 0
end

if attempts >= budget then
  redis.call("DEL", KEYS[1])
  return 3
end

return 1
`)

// RedisOTPStore implements [OTPStore] using Redis.
type RedisOTPStore struct {
	client redis.Cmdable
}

// NewOTPStore creates a new Redis-backed OTPStore.
func NewOTPStore(client redis.Cmdable) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func otpKeys(email string) (codeKey, attemptsKey string) {
	return constants.RedisPrefixOTP + email, constants.RedisPrefixOTPAttempts + email
}

// Save stores the code and resets the counter in one MULTI/EXEC.
func (store *RedisOTPStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	codeKey, attemptsKey := otpKeys(email)

	_, err := store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey, code, ttl)
		pipe.Set(ctx, attemptsKey, 0, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_otp_save_failed: %w", err)
	}

	return nil
}

// Discard removes the code and its counter.
func (store *RedisOTPStore) Discard(ctx context.Context, email string) error {
	codeKey, attemptsKey := otpKeys(email)

	if err := store.client.Del(ctx, codeKey, attemptsKey).Err(); err != nil {
		return fmt.Errorf("redis_otp_discard_failed: %w", err)
	}
	return nil
}

// Verify runs the atomic verification script.
func (store *RedisOTPStore) Verify(ctx context.Context, email, code string, maxAttempts int) (OTPVerdict, error) {
	codeKey, attemptsKey := otpKeys(email)

	reply, err := verifyOTPScript.Run(ctx, store.client, []string{codeKey, attemptsKey}, code, maxAttempts).Int()
	if err != nil {
		return OTPMissing, fmt.Errorf("redis_otp_verify_failed: %w", err)
	}

	verdict := OTPVerdict(reply)
	if verdict < OTPMatched || verdict > OTPExhausted {
		return OTPMissing, fmt.Errorf("redis_otp_verify_failed: unexpected reply %d", reply)
	}

	return verdict, nil
}
