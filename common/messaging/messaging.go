// Package messaging provides abstractions for publishing events to a message
// broker without coupling services to a specific broker implementation.
package messaging

import (
	"context"
	"time"
)

// Message is an outbound message with optional headers.
type Message struct {
	// Subject is the topic the message is published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs sent as message headers.
	Metadata map[string]string

	Timestamp time.Time
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends data to subject. Fire-and-forget.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message with headers.
	PublishMsg(ctx context.Context, msg *Message) error

	// Close releases any resources held by the publisher.
	Close() error
}

// Client is a Publisher that reports its connection state.
type Client interface {
	Publisher

	// Drain flushes pending messages and closes the connection.
	Drain() error

	IsConnected() bool
}

// NoopPublisher discards every message. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }

func (NoopPublisher) PublishMsg(context.Context, *Message) error { return nil }

func (NoopPublisher) Close() error { return nil }

// PublishOption configures message publishing behavior.
type PublishOption func(*Message)

// WithHeader adds a header to the published message.
func WithHeader(key, value string) PublishOption {
	return func(m *Message) {
		if m.Metadata == nil {
			m.Metadata = make(map[string]string)
		}
		m.Metadata[key] = value
	}
}

// NewMessage builds a Message for subject with the given options applied.
func NewMessage(subject string, data []byte, opts ...PublishOption) *Message {
	m := &Message{Subject: subject, Data: data, Timestamp: time.Now()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
