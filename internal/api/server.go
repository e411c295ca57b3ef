// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/feedbackhub/internal/platform/config"
	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/middleware"
	"github.com/taibuivan/feedbackhub/internal/users/account"
	"github.com/taibuivan/feedbackhub/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 only when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles registration, login, refresh, logout and OTP verification.
	Auth *auth.Handler

	// Account handles the caller's profile, sessions and admin role changes.
	Account *account.Handler

	// Realtime upgrades authenticated sockets. It authenticates on its own.
	Realtime http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// The realtime endpoint sits outside the request timeout and the bearer
// middleware: sockets outlive any request deadline and reject bad tokens with
// their own error code. The /auth surface is public and never inspects the
// Authorization header, so a stale access token cannot block refresh or logout.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	ipLimiter := middleware.NewIPRateLimiter(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(ipLimiter.Handler)
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	if h.Realtime != nil {
		r.Get("/realtime", h.Realtime.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(constants.GlobalRequestTimeout))

		// # Infrastructure Endpoints
		r.Get("/health", h.Liveness)
		r.Get("/ready", h.Readiness)

		// # Application API
		mountDomains(r, verifier, h)
		r.Route("/api/v1", func(v1 chi.Router) {
			mountDomains(v1, verifier, h)
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

func mountDomains(r chi.Router, verifier middleware.TokenVerifier, h Handlers) {
	if h.Auth != nil {
		r.Mount("/auth", h.Auth.Routes())
	}
	if h.Account != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(verifier))
			r.Mount("/users", h.Account.Routes())
		})
	}
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
// Hijacked websocket connections are not waited for.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
