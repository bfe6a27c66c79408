package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrNotAuthenticated   = errors.New("could not validate credentials")
	ErrAccountDisabled    = errors.New("inactive user")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrTokenWithoutID     = errors.New("token has no id and cannot be revoked")
)

// Reason classifies an authentication or authorization failure. Reasons
// feed audit events and metrics; clients only ever see the generic error.
type Reason string

const (
	ReasonUserNotFound       Reason = "user_not_found"
	ReasonBadPassword        Reason = "bad_password"
	ReasonMissingCredentials Reason = "missing_credentials"
	ReasonInvalidToken       Reason = "invalid_token"
	ReasonAccountDisabled    Reason = "account_disabled"
	ReasonRateLimited        Reason = "rate_limited"
)

// AuthError is returned for every rejected login or request. Err is the
// generic client-facing error; Cause narrows InvalidToken down for the
// audit trail (expired, malformed, missing_subject, revoked, unknown_subject).
type AuthError struct {
	Reason Reason
	Cause  string
	Err    error
}

func (e *AuthError) Error() string { return e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }

func newAuthError(reason Reason, cause string) *AuthError {
	var err error
	switch reason {
	case ReasonUserNotFound, ReasonBadPassword:
		err = ErrInvalidCredentials
	case ReasonAccountDisabled:
		err = ErrAccountDisabled
	case ReasonRateLimited:
		err = ErrTooManyAttempts
	default:
		err = ErrNotAuthenticated
	}
	return &AuthError{Reason: reason, Cause: cause, Err: err}
}

// ReasonOf extracts the failure reason from err, or "" if err is not an
// *AuthError.
func ReasonOf(err error) Reason {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}
