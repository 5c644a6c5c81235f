// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/authgate/internal/platform/constants"
	"github.com/taibuivan/authgate/internal/platform/respond"
	requestutil "github.com/taibuivan/authgate/internal/platform/request"
	"github.com/taibuivan/authgate/internal/platform/validate"
)

// Handler implements the credential HTTP endpoints.
//
// Handlers only decode, call the [Service] and encode. Every rule, including
// field validation, lives in the service and the identity store.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router mounted under /api/auth.
//
// # Endpoints
//   - POST /register : creates an account and its profile; acknowledgment only.
//   - POST /login    : returns a token pair.
//   - POST /refresh  : rotates a token pair.
//   - GET  /health   : liveness of the auth routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Get("/health", handler.health)

	return router
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// register handles POST /api/auth/register.
//
// An optional bearer token identifies the caller; it is required only to
// create accounts with a privileged role.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Role:     input.Role,
		Caller:   requestutil.Caller(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/auth/login.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		respond.Error(writer, request, (&validate.Validator{}).
			Required("email", input.Email).
			Required("password", input.Password).
			Err())
		return
	}

	pair, err := handler.service.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

type refreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refresh handles POST /api/auth/refresh.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.AccessToken == "" || input.RefreshToken == "" {
		respond.Error(writer, request, (&validate.Validator{}).
			Required("accessToken", input.AccessToken).
			Required("refreshToken", input.RefreshToken).
			Err())
		return
	}

	pair, err := handler.service.Refresh(request.Context(), input.AccessToken, input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// health handles GET /api/auth/health.
func (handler *Handler) health(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldMessage: "Auth service is healthy",
	})
}
