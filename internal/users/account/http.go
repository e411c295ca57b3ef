// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/feedbackhub/internal/platform/middleware"
	requestutil "github.com/taibuivan/feedbackhub/internal/platform/request"
	"github.com/taibuivan/feedbackhub/internal/platform/respond"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
)

// Handler implements the HTTP layer for account management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account endpoints.
//
// Every route requires a bearer access token; [middleware.Authenticate] must
// run earlier in the chain.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(router chi.Router) {
		router.Use(middleware.RequireAuth)

		router.Get("/me", handler.getMe)
		router.Get("/me/sessions", handler.listSessions)
		router.Delete("/me/sessions", handler.revokeAllSessions)
		router.Delete("/me/sessions/{id}", handler.revokeSession)
	})

	router.With(middleware.RequireRole(sec.RoleAdmin)).Patch("/{id}/role", handler.assignRole)

	return router
}

/*
GET /users/me.

Response:
  - 200: Me: Private profile
  - 401: MISSING_TOKEN
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	me, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, me, "")
}

/*
GET /users/me/sessions.

Response:
  - 200: []SessionInfo: Live sessions, newest first
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions, "")
}

/*
DELETE /users/me/sessions/{id}.

Response:
  - 204: Session revoked
  - 404: Not owned by the caller or already gone
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RevokeSession(request.Context(), userID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DELETE /users/me/sessions.

Response:
  - 204: Signed out everywhere
*/
func (handler *Handler) revokeAllSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RevokeAllSessions(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

/*
PATCH /users/{id}/role. ADMIN only.

Request:
  - body: {"role": "USER" | "ADMIN"}

Response:
  - 200: Me: Updated profile of the target user
  - 400: VALIDATION_ERROR
  - 403: FORBIDDEN
  - 404: NOT_FOUND
*/
func (handler *Handler) assignRole(writer http.ResponseWriter, request *http.Request) {
	var input assignRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	me, err := handler.accountService.AssignRole(request.Context(), requestutil.Param(request, "id"), input.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, me, "Role updated")
}
