package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quoteline-systems/quoteline-stack/common/httputil"
	"github.com/quoteline-systems/quoteline-stack/common/logging"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/metrics"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/service"
)

type contextKey string

const IdentityKey contextKey = "identity"

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuth admits requests carrying a valid bearer token for an active
// user. Missing or invalid credentials get 401 with a Bearer challenge; a
// disabled account gets 403.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := httputil.BearerToken(r)

		identity, err := m.authService.Authorize(r.Context(), token)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *service.AuthError
	if !errors.As(err, &authErr) {
		logging.Default().WithContext(r.Context()).Error("Authorization check failed", logging.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, "authorization backend unavailable")
		return
	}

	metrics.AuthRejections.WithLabelValues(string(authErr.Reason)).Inc()
	m.authService.RecordDenied(r.Context(), err, httputil.GetClientIP(r), r.UserAgent())
	slog.Debug("Request rejected",
		logging.Path(r.URL.Path),
		logging.Reason(string(authErr.Reason)),
	)

	switch authErr.Reason {
	case service.ReasonAccountDisabled:
		httputil.WriteError(w, http.StatusForbidden, "Inactive user")
	case service.ReasonMissingCredentials:
		httputil.WriteUnauthorized(w, "Not authenticated")
	default:
		httputil.WriteUnauthorized(w, "Could not validate credentials")
	}
}

// IdentityFromContext returns the identity RequireAuth stored on the
// request context.
func IdentityFromContext(ctx context.Context) (*service.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*service.Identity)
	return identity, ok
}
