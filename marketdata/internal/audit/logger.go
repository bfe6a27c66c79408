// Package audit records reason-coded authentication events. Each event is
// HMAC-signed, written to the structured log and, when a broker is
// configured, published for downstream consumers.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	commonaudit "github.com/quoteline-systems/quoteline-stack/common/audit"
	"github.com/quoteline-systems/quoteline-stack/common/logging"
	"github.com/quoteline-systems/quoteline-stack/common/messaging"
)

type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventLoginThrottled EventType = "login_throttled"
	EventTokenRevoked   EventType = "token_revoked"
	EventAccessDenied   EventType = "access_denied"
)

// Event is one signed audit record. Passwords, hashes and raw tokens are
// never part of it.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	TokenID   string    `json:"token_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Signature string    `json:"signature"`
}

func (e *Event) payload() []byte {
	unsigned := *e
	unsigned.Signature = ""
	data, _ := json.Marshal(unsigned)
	return data
}

type Logger struct {
	signer    *commonaudit.EventSigner
	publisher messaging.Publisher
	now       func() time.Time
}

// NewLogger signs events with secret. A nil publisher keeps events local.
func NewLogger(secret string, publisher messaging.Publisher) *Logger {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Logger{
		signer:    commonaudit.NewEventSigner(secret),
		publisher: publisher,
		now:       time.Now,
	}
}

// Record completes, signs and emits ev. Publishing failures are logged and
// never fail the caller.
func (l *Logger) Record(ctx context.Context, ev Event) *Event {
	ev.ID = uuid.New().String()
	ev.Timestamp = l.now().UTC()
	ev.Signature = l.signer.Sign(ev.ID, ev.Timestamp, ev.Username, ev.payload())

	level := slog.LevelInfo
	if ev.Type != EventLoginSucceeded && ev.Type != EventTokenRevoked {
		level = slog.LevelWarn
	}
	logging.Default().WithContext(ctx).Log(ctx, level, "Auth event",
		slog.String("event_id", ev.ID),
		slog.String("event_type", string(ev.Type)),
		logging.Username(ev.Username),
		logging.Reason(ev.Reason),
		logging.TokenID(ev.TokenID),
		logging.IP(ev.IPAddress),
	)

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to encode audit event", logging.Error(err))
		return &ev
	}
	msg := messaging.NewMessage(messaging.AuthEventSubject(string(ev.Type)), data,
		messaging.WithHeader(messaging.HeaderEventID, ev.ID),
		messaging.WithHeader(messaging.HeaderSignature, ev.Signature),
	)
	if err := l.publisher.PublishMsg(ctx, msg); err != nil {
		slog.Warn("Failed to publish audit event",
			slog.String("event_id", ev.ID),
			logging.Error(err),
		)
	}

	return &ev
}

// Verify reports whether ev carries a valid signature from this logger's
// secret.
func (l *Logger) Verify(ev *Event) bool {
	return l.signer.Verify(ev.ID, ev.Timestamp, ev.Username, ev.payload(), ev.Signature)
}
