package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Togather-Foundation/conflicts/internal/api/problem"
	"github.com/Togather-Foundation/conflicts/internal/audit"
	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/domain/users"
)

type AuthHandler struct {
	Users *users.Service
	Audit *audit.Logger
	Env   string
}

func NewAuthHandler(svc *users.Service, auditLogger *audit.Logger, env string) *AuthHandler {
	return &AuthHandler{Users: svc, Audit: auditLogger, Env: env}
}

type sessionResponse struct {
	User   users.Profile  `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var params users.LoginParams
	if err := decodeJSON(r, &params); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	session, err := h.Users.Login(r.Context(), params)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			h.Audit.LogFromRequest(r, "auth.login", params.Username, "user", "", audit.StatusFailure,
				map[string]string{"reason": "invalid_credentials"})
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, h.Env,
				problem.WithDetail("Username or password is incorrect"))
			return
		}
		problem.Error(w, r, err, h.Env)
		return
	}

	h.Audit.LogFromRequest(r, "auth.login", session.User.Username, "user",
		strconv.FormatInt(session.User.ID, 10), audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, sessionResponse{User: session.User, Tokens: session.Tokens})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var params users.RefreshParams
	if err := decodeJSON(r, &params); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	session, err := h.Users.Refresh(r.Context(), params)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: session.User, Tokens: session.Tokens})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		problem.Error(w, r, auth.ErrMissingToken, h.Env)
		return
	}

	profile, err := h.Users.Me(r.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			// The token outlived its account.
			problem.Error(w, r, auth.ErrInvalidToken, h.Env)
			return
		}
		problem.Error(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}
