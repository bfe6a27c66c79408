package messaging

// Subject constants for the quoteline message bus.
// Follow the pattern: {domain}.{resource}.{action}
const (
	SubjectAuthEvents = "marketdata.auth.events" // Every login, revoke and rejected request

	SubjectAuthLoginSucceeded = SubjectAuthEvents + ".login_succeeded"
	SubjectAuthLoginFailed    = SubjectAuthEvents + ".login_failed"
	SubjectAuthTokenRevoked   = SubjectAuthEvents + ".token_revoked"
	SubjectAuthAccessDenied   = SubjectAuthEvents + ".access_denied"
)

// AuthEventSubject returns the subject an auth event of the given type is
// published to, e.g. marketdata.auth.events.login_failed.
func AuthEventSubject(eventType string) string {
	return SubjectAuthEvents + "." + eventType
}

// Header names attached to published events.
const (
	HeaderSignature = "X-Quoteline-Signature"
	HeaderEventID   = "X-Quoteline-Event-ID"
)
