// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/taibuivan/feedbackhub/internal/platform/apperr"
	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/feedbackhub/internal/platform/request"
	"github.com/taibuivan/feedbackhub/internal/platform/respond"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
)

// # Handshake Errors

var (
	// ErrNoToken rejects a handshake that carries no token at all.
	ErrNoToken = apperr.New(http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication error: No token provided",
		apperr.WithField("token", "Token is required"))

	// ErrBadToken rejects a handshake whose token does not verify.
	ErrBadToken = apperr.New(http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication error: Invalid token",
		apperr.WithField("token", "Invalid or expired token"))
)

// TokenVerifier checks an access token.
type TokenVerifier interface {
	VerifyToken(token string) (*sec.AuthClaims, error)
}

// HandlerConfig holds transport-level options.
type HandlerConfig struct {
	// CheckOrigin decides whether a browser origin may connect. Nil allows any.
	CheckOrigin func(request *http.Request) bool
}

// Handler upgrades authenticated requests to realtime sockets.
type Handler struct {
	hub      *Hub
	broker   Broker
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler constructs the realtime [Handler].
func NewHandler(hub *Hub, broker Broker, verifier TokenVerifier, config HandlerConfig) *Handler {
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Handler{
		hub:      hub,
		broker:   broker,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

/*
ServeHTTP handles GET /realtime.

Description: The access token comes from the "token" query parameter or the
Authorization bearer header. Authentication happens before the upgrade, so a
rejected client gets a plain JSON 401.

Response:
  - 101: Switching Protocols
  - 401: AUTHENTICATION_ERROR
*/
func (handler *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	token := request.URL.Query().Get("token")
	if token == "" {
		token = requestutil.BearerToken(request)
	}
	if token == "" {
		respond.Error(writer, request, ErrNoToken)
		return
	}

	claims, err := handler.verifier.VerifyToken(token)
	if err != nil {
		respond.Error(writer, request, ErrBadToken)
		return
	}

	conn, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "realtime_upgrade_failed", slog.Any("error", err))
		return
	}

	identity := claims.Identity()
	logger := ctxutil.GetLogger(request.Context()).With(slog.String("user_id", identity.UserID))

	client := newClient(handler.hub, handler.broker, conn, identity, logger)

	rooms := []string{UserRoom(identity.UserID)}
	if identity.Role == sec.RoleAdmin {
		rooms = append(rooms, constants.RoomAdmins)
	}
	handler.hub.join(client, rooms...)

	logger.Info("realtime_connected", slog.Any("rooms", rooms))

	go client.writePump()
	go client.readPump()
}
