package audit

import (
	"encoding/hex"
	"testing"
	"time"
)

func TestEventSigner_Sign(t *testing.T) {
	signer := NewEventSigner("test-secret")
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	data := []byte(`{"type":"login_succeeded"}`)

	signature := signer.Sign("event-123", timestamp, "alice", data)
	if signature == "" {
		t.Fatal("expected non-empty signature")
	}

	if again := signer.Sign("event-123", timestamp, "alice", data); again != signature {
		t.Error("expected deterministic signatures for same input")
	}

	if other := signer.Sign("event-124", timestamp, "alice", data); other == signature {
		t.Error("expected different signatures for different event IDs")
	}
}

func TestEventSigner_Verify(t *testing.T) {
	signer := NewEventSigner("test-secret")
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	eventID := "event-456"
	actor := "alice"
	data := []byte(`{"type":"token_revoked"}`)
	signature := signer.Sign(eventID, timestamp, actor, data)

	tests := []struct {
		name      string
		eventID   string
		timestamp time.Time
		actor     string
		data      []byte
		wantValid bool
	}{
		{
			name:      "valid signature",
			eventID:   eventID,
			timestamp: timestamp,
			actor:     actor,
			data:      data,
			wantValid: true,
		},
		{
			name:      "wrong event ID",
			eventID:   "event-999",
			timestamp: timestamp,
			actor:     actor,
			data:      data,
		},
		{
			name:      "wrong timestamp",
			eventID:   eventID,
			timestamp: timestamp.Add(time.Nanosecond),
			actor:     actor,
			data:      data,
		},
		{
			name:      "wrong actor",
			eventID:   eventID,
			timestamp: timestamp,
			actor:     "mallory",
			data:      data,
		},
		{
			name:      "tampered data",
			eventID:   eventID,
			timestamp: timestamp,
			actor:     actor,
			data:      []byte(`{"type":"login_succeeded"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := signer.Verify(tt.eventID, tt.timestamp, tt.actor, tt.data, signature)
			if got != tt.wantValid {
				t.Errorf("Verify() = %v, want %v", got, tt.wantValid)
			}
		})
	}
}

func TestEventSigner_FieldBoundaries(t *testing.T) {
	signer := NewEventSigner("test-secret")
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := signer.Sign("ab", ts, "c", nil)
	b := signer.Sign("a", ts, "bc", nil)
	if a == b {
		t.Error("shifting bytes between fields must change the signature")
	}
}

func TestEventSigner_TimezoneIndependent(t *testing.T) {
	signer := NewEventSigner("test-secret")
	utc := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("EST", -5*3600))

	if signer.Sign("e", utc, "a", nil) != signer.Sign("e", local, "a", nil) {
		t.Error("the same instant in different zones must sign identically")
	}
}

func TestEventSigner_DifferentSecrets(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sig := NewEventSigner("secret-1").Sign("e", ts, "a", nil)

	if NewEventSigner("secret-2").Verify("e", ts, "a", nil, sig) {
		t.Error("signature from a different secret must not verify")
	}
}

func TestEventSigner_SignatureFormat(t *testing.T) {
	sig := NewEventSigner("k").Sign("e", time.Now(), "a", []byte("x"))
	if len(sig) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(sig))
	}
	if _, err := hex.DecodeString(sig); err != nil {
		t.Errorf("signature is not hex: %v", err)
	}
}
