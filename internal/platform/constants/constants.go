// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuers and cookie configuration.
  - Verification: OTP lifetime and attempt budget.
  - Realtime: socket timing, room names and the pub/sub channel.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "feedbackhub-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute

	// RedisPrefixAuthLimit namespaces the fixed-window counters of the /auth limiter.
	RedisPrefixAuthLimit = "ratelimit:auth:"
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "feedbackhub.app"

	// RefreshTokenCookieName is the name of the cookie that stores the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath scopes the refresh cookie to the auth routes.
	RefreshTokenCookiePath = "/"
)

// # Verification (OTP)

const (
	// OTPLength is the number of decimal digits in a verification code.
	OTPLength = 6

	// OTPTTL is how long a code and its attempt counter live in Redis.
	OTPTTL = 5 * time.Minute

	// OTPMaxAttempts is the number of comparisons allowed per issued code.
	OTPMaxAttempts = 3

	// RedisPrefixOTP keys the stored code by lower-cased email.
	RedisPrefixOTP = "otp:"

	// RedisPrefixOTPAttempts keys the attempt counter by lower-cased email.
	RedisPrefixOTPAttempts = "otp_attempts:"
)

// # Realtime

const (
	// RealtimeChannel is the Redis pub/sub channel that fans events out across processes.
	RealtimeChannel = "realtime:events"

	// RealtimePublishTimeout bounds one fire-and-forget realtime publish.
	RealtimePublishTimeout = 500 * time.Millisecond

	// RoomAdmins is joined by every ADMIN socket.
	RoomAdmins = "admins"

	// RoomUserPrefix prefixes the per-user room ("user:<id>").
	RoomUserPrefix = "user:"

	// SocketWriteWait is the time allowed to write a frame to the peer.
	SocketWriteWait = 10 * time.Second

	// SocketPongWait is the time allowed to read the next pong from the peer.
	SocketPongWait = 60 * time.Second

	// SocketPingPeriod must be shorter than SocketPongWait.
	SocketPingPeriod = (SocketPongWait * 9) / 10

	// SocketMaxMessageBytes caps inbound frames.
	SocketMaxMessageBytes = 4096

	// SocketSendBuffer is the per-connection outbound queue length.
	SocketSendBuffer = 32

	// SocketEventsPerMinute is the per-event inbound budget of one connection.
	SocketEventsPerMinute = 10
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Tables

const (
	TableUsers         = "users"
	TableRefreshTokens = "refresh_tokens"
)
