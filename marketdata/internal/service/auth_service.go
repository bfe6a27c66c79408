package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quoteline-systems/quoteline-stack/common/logging"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/audit"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/metrics"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/models"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/ratelimit"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/repository"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/revocation"
	"github.com/quoteline-systems/quoteline-stack/marketdata/pkg/tokens"
)

// dummyHash is compared against when the username is unknown so that a
// missing user costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("quoteline-dummy-password"), bcrypt.DefaultCost)

// Identity is the authorized caller of a protected request.
type Identity struct {
	User      *models.User
	TokenID   string
	ExpiresAt time.Time
}

// LoginRequest carries the form credentials plus request metadata for the
// audit trail.
type LoginRequest struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

type AuthService struct {
	repo     repository.Repository
	tokens   *tokens.Manager
	auditLog *audit.Logger
	revoked  revocation.Store
	limiter  ratelimit.RateLimiter
}

// NewAuthService wires the authentication collaborators. Nil revocation
// store and limiter fall back to no-op implementations.
func NewAuthService(repo repository.Repository, tokenMgr *tokens.Manager, auditLog *audit.Logger, revoked revocation.Store, limiter ratelimit.RateLimiter) *AuthService {
	if revoked == nil {
		revoked = revocation.NoopStore{}
	}
	if limiter == nil {
		limiter = ratelimit.NoOpRateLimiter{}
	}
	if auditLog == nil {
		auditLog = audit.NewLogger("", nil)
	}
	return &AuthService{
		repo:     repo,
		tokens:   tokenMgr,
		auditLog: auditLog,
		revoked:  revoked,
		limiter:  limiter,
	}
}

// Authenticate checks a username/password pair. Lookup is case-sensitive.
// Disabled users authenticate successfully; the access guard rejects them.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, newAuthError(ReasonUserNotFound, "")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, newAuthError(ReasonBadPassword, "no_password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, newAuthError(ReasonBadPassword, "")
	}

	return user, nil
}

// Login authenticates req and issues an access token for the user.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*tokens.Token, error) {
	allowed, err := s.limiter.Allow(ctx, req.IPAddress)
	if err != nil {
		// Limiter errors fail open.
		slog.Warn("Login rate limiter unavailable", logging.Error(err))
	} else if !allowed {
		metrics.LoginRateLimitHits.Inc()
		metrics.LoginsTotal.WithLabelValues("throttled").Inc()
		s.auditLog.Record(ctx, audit.Event{
			Type:      audit.EventLoginThrottled,
			Username:  req.Username,
			Reason:    string(ReasonRateLimited),
			IPAddress: req.IPAddress,
			UserAgent: req.UserAgent,
		})
		return nil, newAuthError(ReasonRateLimited, "")
	}

	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if reason := ReasonOf(err); reason != "" {
			metrics.LoginsTotal.WithLabelValues(string(reason)).Inc()
			s.auditLog.Record(ctx, audit.Event{
				Type:      audit.EventLoginFailed,
				Username:  req.Username,
				Reason:    string(reason),
				IPAddress: req.IPAddress,
				UserAgent: req.UserAgent,
			})
		}
		return nil, err
	}

	token, err := s.tokens.Issue(user.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssued.Inc()
	s.auditLog.Record(ctx, audit.Event{
		Type:      audit.EventLoginSucceeded,
		Username:  user.Username,
		TokenID:   token.ID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	})

	return token, nil
}

// Authorize turns a bearer credential into an Identity. An empty token
// means the request carried no credentials.
func (s *AuthService) Authorize(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, newAuthError(ReasonMissingCredentials, "")
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, newAuthError(ReasonInvalidToken, tokenCause(err))
	}

	if claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			return nil, newAuthError(ReasonInvalidToken, "revoked")
		}
	}

	user, err := s.repo.GetUserByUsername(ctx, claims.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, newAuthError(ReasonInvalidToken, "unknown_subject")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive() {
		return nil, newAuthError(ReasonAccountDisabled, "")
	}

	identity := &Identity{User: user, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// RecordDenied writes the audit event for a request the guard rejected.
func (s *AuthService) RecordDenied(ctx context.Context, err error, ipAddress, userAgent string) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return
	}
	reason := string(authErr.Reason)
	if authErr.Cause != "" {
		reason += ":" + authErr.Cause
	}
	s.auditLog.Record(ctx, audit.Event{
		Type:      audit.EventAccessDenied,
		Reason:    reason,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// Revoke denylists the caller's current token until it would have expired.
func (s *AuthService) Revoke(ctx context.Context, identity *Identity, ipAddress, userAgent string) error {
	if identity.TokenID == "" {
		return ErrTokenWithoutID
	}
	if err := s.revoked.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	metrics.TokensRevoked.Inc()
	s.auditLog.Record(ctx, audit.Event{
		Type:      audit.EventTokenRevoked,
		Username:  identity.User.Username,
		TokenID:   identity.TokenID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	return nil
}

// RevocationEnabled reports whether Revoke has any effect.
func (s *AuthService) RevocationEnabled() bool {
	_, noop := s.revoked.(revocation.NoopStore)
	return !noop
}

// TokenTTL is the lifetime of tokens issued by Login.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func tokenCause(err error) string {
	switch {
	case errors.Is(err, tokens.ErrExpired):
		return "expired"
	case errors.Is(err, tokens.ErrMissingSubject):
		return "missing_subject"
	default:
		return "malformed"
	}
}
