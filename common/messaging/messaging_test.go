package messaging

import (
	"context"
	"testing"
)

func TestNewMessage_AppliesHeaders(t *testing.T) {
	msg := NewMessage("marketdata.auth.events.login_failed", []byte("{}"),
		WithHeader(HeaderEventID, "evt-1"),
		WithHeader(HeaderSignature, "abc"),
	)

	if msg.Subject != "marketdata.auth.events.login_failed" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Metadata[HeaderEventID] != "evt-1" {
		t.Errorf("expected event id header, got %q", msg.Metadata[HeaderEventID])
	}
	if msg.Metadata[HeaderSignature] != "abc" {
		t.Errorf("expected signature header, got %q", msg.Metadata[HeaderSignature])
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestNewMessage_NoOptions(t *testing.T) {
	msg := NewMessage("s", nil)
	if msg.Metadata != nil {
		t.Errorf("expected nil metadata, got %v", msg.Metadata)
	}
}

func TestAuthEventSubject(t *testing.T) {
	tests := map[string]string{
		"login_succeeded": SubjectAuthLoginSucceeded,
		"login_failed":    SubjectAuthLoginFailed,
		"token_revoked":   SubjectAuthTokenRevoked,
		"access_denied":   SubjectAuthAccessDenied,
	}
	for eventType, want := range tests {
		if got := AuthEventSubject(eventType); got != want {
			t.Errorf("AuthEventSubject(%q) = %q, want %q", eventType, got, want)
		}
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.Publish(context.Background(), "s", []byte("x")); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.PublishMsg(context.Background(), NewMessage("s", nil)); err != nil {
		t.Errorf("PublishMsg: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

type stubClient struct {
	NoopPublisher
	connected bool
}

func (stubClient) Drain() error        { return nil }
func (s stubClient) IsConnected() bool { return s.connected }

func TestCheckClientHealth(t *testing.T) {
	if got := CheckClientHealth(nil); got.Enabled || got.Error != "" {
		t.Errorf("nil client should report disabled and healthy, got %+v", got)
	}

	got := CheckClientHealth(stubClient{connected: true})
	if !got.Enabled || !got.Connected || got.Error != "" {
		t.Errorf("unexpected status for connected client: %+v", got)
	}

	got = CheckClientHealth(stubClient{connected: false})
	if got.Connected || got.Error == "" {
		t.Errorf("expected error for disconnected client, got %+v", got)
	}
}
