package handlers

import (
	"errors"
	"net/http"

	"github.com/quoteline-systems/quoteline-stack/common/httputil"
	"github.com/quoteline-systems/quoteline-stack/common/logging"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/middleware"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/models"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/service"
	"github.com/quoteline-systems/quoteline-stack/marketdata/pkg/tokens"
)

// maxFormBytes bounds the login form body.
const maxFormBytes = 64 << 10

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// Login handles the OAuth2 password flow: a form-encoded username and
// password in, a bearer token out.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	if grant := r.PostForm.Get("grant_type"); grant != "" && grant != "password" {
		httputil.WriteFieldError(w, http.StatusBadRequest, "grant_type", "unsupported_grant_type", "Only the password grant is supported")
		return
	}
	for _, field := range []string{"username", "password"} {
		if !r.PostForm.Has(field) {
			httputil.WriteFieldError(w, http.StatusBadRequest, field, "missing", "Field required: "+field)
			return
		}
	}

	token, err := h.service.Login(r.Context(), &service.LoginRequest{
		Username:  r.PostForm.Get("username"),
		Password:  r.PostForm.Get("password"),
		IPAddress: httputil.GetClientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "Incorrect username or password")
		return
	case errors.Is(err, service.ErrTooManyAttempts):
		httputil.WriteError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	case err != nil:
		logging.Default().WithContext(r.Context()).Error("Login failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: token.Value,
		TokenType:   tokens.SchemeBearer,
		ExpiresIn:   int(token.ExpiresAt.Sub(token.IssuedAt).Seconds()),
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identity.User)
}

// Revoke invalidates the token the request was made with.
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	if !h.service.RevocationEnabled() {
		httputil.WriteError(w, http.StatusNotImplemented, "Token revocation is not enabled")
		return
	}

	err := h.service.Revoke(r.Context(), identity, httputil.GetClientIP(r), r.UserAgent())
	switch {
	case errors.Is(err, service.ErrTokenWithoutID):
		httputil.WriteError(w, http.StatusBadRequest, "Token cannot be revoked")
		return
	case err != nil:
		logging.Default().WithContext(r.Context()).Error("Token revocation failed", logging.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, "Token revocation unavailable")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.RevokeResponse{Revoked: true, ExpiresAt: identity.ExpiresAt})
}

// Index answers the authenticated root path.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, "marketdata API")
}
