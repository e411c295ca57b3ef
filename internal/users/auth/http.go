// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	requestutil "github.com/taibuivan/feedbackhub/internal/platform/request"
	"github.com/taibuivan/feedbackhub/internal/platform/respond"
)

// # Definitions & Constructors

// HandlerConfig holds transport-level options.
type HandlerConfig struct {
	// SecureCookies marks the refresh cookie Secure. Off only for plain-HTTP development.
	SecureCookies bool

	// Throttle guards every credential endpoint. Optional.
	Throttle func(http.Handler) http.Handler
}

// Handler implements the /auth endpoints.
type Handler struct {
	authService *Service
	config      HandlerConfig
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, config HandlerConfig) *Handler {
	return &Handler{authService: service, config: config}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register   : Creates an unverified account.
//   - POST /login      : Issues an access/refresh token pair.
//   - POST /refresh    : Mints a new access token.
//   - POST /logout     : Revokes a refresh token.
//   - POST /send-otp   : Mails a verification code.
//   - POST /verify-otp : Verifies the email with a code.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	if handler.config.Throttle != nil {
		router.Use(handler.config.Throttle)
	}

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/send-otp", handler.sendOTP)
	router.Post("/verify-otp", handler.verifyOTP)

	return router
}

// # Request Payloads

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// # Response Payloads

type loginResponse struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	User         Profile `json:"user"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type sendOTPResponse struct {
	OTP string `json:"otp,omitempty"`
}

/*
Register handles the creation of a new user account.

POST /auth/register

Response:
  - 201: Profile: Created user (no password hash)
  - 400: VALIDATION_ERROR or EMAIL_TAKEN
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user.Profile(), "User registered")
}

/*
Login authenticates a user and establishes a session.

POST /auth/login

Description: Returns both tokens in the body and also sets the refresh token
as an HttpOnly cookie.

Response:
  - 200: loginResponse
  - 401: INVALID_CREDENTIALS or NOT_VERIFIED
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken, session.RefreshExpiresAt)

	respond.OK(writer, loginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User.Profile(),
	}, "Login successful")
}

/*
Refresh issues a new access token using a ledgered refresh token.

POST /auth/refresh

Description: The token is read from the JSON body, falling back to the
refresh cookie.

Response:
  - 200: refreshResponse
  - 401: MISSING_TOKEN, INVALID_TOKEN or EXPIRED_TOKEN
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token, err := refreshTokenFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if pair.RefreshToken != "" {
		handler.setRefreshCookie(writer, pair.RefreshToken, pair.RefreshExpiresAt)
	}

	respond.OK(writer, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Token refreshed")
}

/*
Logout revokes the refresh token and clears the cookie.

POST /auth/logout

Response:
  - 200: Logged out (whether or not the token existed)
  - 401: MISSING_TOKEN
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token, err := refreshTokenFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, "", time.Time{})
	respond.OK(writer, nil, "Logged out successfully")
}

/*
SendOTP mails a verification code.

POST /auth/send-otp

Response:
  - 200: sendOTPResponse (code only when echo is enabled)
  - 500: DELIVERY_FAILED
*/
func (handler *Handler) sendOTP(writer http.ResponseWriter, request *http.Request) {
	var input sendOTPRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	code, err := handler.authService.SendOTP(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sendOTPResponse{OTP: code}, "OTP sent")
}

/*
VerifyOTP verifies the email address with a code.

POST /auth/verify-otp

Response:
  - 200: Email verified
  - 400: INVALID_OTP or OTP_EXPIRED
  - 429: TOO_MANY_ATTEMPTS
*/
func (handler *Handler) verifyOTP(writer http.ResponseWriter, request *http.Request) {
	var input verifyOTPRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), input.Email, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, nil, "Email verified")
}

// # Helpers

func refreshTokenFrom(request *http.Request) (string, error) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return "", err
	}
	if input.RefreshToken != "" {
		return input.RefreshToken, nil
	}
	return requestutil.Cookie(request, constants.RefreshTokenCookieName), nil
}

// setRefreshCookie writes the refresh cookie. An empty value deletes it.
func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, value string, expiresAt time.Time) {
	cookie := &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    value,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expiresAt,
		Secure:   handler.config.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	if value == "" {
		cookie.Expires = time.Time{}
		cookie.MaxAge = -1
	}
	http.SetCookie(writer, cookie)
}
