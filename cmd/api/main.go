// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the FeedbackHub HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire token, mail, realtime and session services.
//  7. Start background workers (ledger janitor, realtime subscription).
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/taibuivan/feedbackhub/internal/api"
	"github.com/taibuivan/feedbackhub/internal/platform/config"
	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/mail"
	"github.com/taibuivan/feedbackhub/internal/platform/middleware"
	"github.com/taibuivan/feedbackhub/internal/platform/migration"
	pgstore "github.com/taibuivan/feedbackhub/internal/platform/postgres"
	"github.com/taibuivan/feedbackhub/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/feedbackhub/internal/platform/redis"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
	"github.com/taibuivan/feedbackhub/internal/realtime"
	"github.com/taibuivan/feedbackhub/internal/users/account"
	"github.com/taibuivan/feedbackhub/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("rotate_refresh_tokens", cfg.RotateRefreshTokens),
	)

	// Root context for background workers; cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Services ───────────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
		Issuer:        constants.AuthIssuer,
	})
	must(log, err, "initialize token service")

	var sender mail.Sender = mail.NewLogSender(log)
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Warn("smtp_not_configured", slog.String("fallback", "log"))
	}

	hub := realtime.NewHub(log)
	broker := realtime.NewRedisBroker(rdb, constants.RealtimeChannel, log)
	notifier := realtime.NewNotifier(broker)

	userRepository := auth.NewUserRepository(pool)
	ledger := auth.NewRefreshTokenLedger(pool)

	otpService := auth.NewOTPService(
		auth.NewOTPStore(rdb),
		mail.NewOTPMailer(sender, cfg.AppName, constants.OTPTTL),
		auth.OTPConfig{TTL: constants.OTPTTL, MaxAttempts: constants.OTPMaxAttempts, Echo: cfg.EchoOTP()},
	)

	authService := auth.NewService(userRepository, ledger, tokens, otpService, notifier,
		auth.Options{RotateRefreshTokens: cfg.RotateRefreshTokens})

	authLimiter, err := ratelimit.NewRedisLimiter(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow, constants.RedisPrefixAuthLimit)
	must(log, err, "initialize auth rate limiter")

	// ── 7. Background Workers ─────────────────────────────────────────────
	brokerDone, err := broker.Listen(rootCtx, hub)
	must(log, err, "subscribe to realtime channel")

	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		auth.NewJanitor(ledger, cfg.LedgerCleanupInterval, log).Run(rootCtx)
	}()

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth: auth.NewHandler(authService, auth.HandlerConfig{
			SecureCookies: !cfg.IsDevelopment(),
			Throttle:      middleware.WindowRateLimit(authLimiter),
		}),
		Account: account.NewHandler(account.NewService(userRepository, ledger, notifier)),
		Realtime: realtime.NewHandler(hub, broker, tokens, realtime.HandlerConfig{
			CheckOrigin: originChecker(cfg),
		}),
	}

	server := api.NewServer(rootCtx, cfg, log, tokens, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)

	rootCancel()
	<-brokerDone
	<-janitorDone

	if shutdownErr != nil {
		log.Error("shutdown_failed", slog.Any("error", shutdownErr))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String(constants.FieldApp, constants.AppName),
		slog.String(constants.FieldVersion, constants.AppVersion),
	)
}

// originChecker mirrors the CORS policy for websocket handshakes.
func originChecker(cfg *config.Config) func(*http.Request) bool {
	allowed := cfg.Origins()
	return func(request *http.Request) bool {
		origin := request.Header.Get(constants.HeaderOrigin)
		return origin == "" || cfg.IsDevelopment() || slices.Contains(allowed, origin)
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
