// Package revocation keeps a denylist of access tokens revoked before
// their natural expiry.
package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "marketdata:revoked:"

// Store records revoked token IDs until the token would have expired.
type Store interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisStore keeps one key per revoked token with TTL equal to the token's
// remaining lifetime, so the denylist never outgrows live tokens.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Revoke is a no-op for a token that has already expired.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, keyPrefix+tokenID, "1", ttl).Err()
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NoopStore never revokes anything. Tokens live until they expire.
type NoopStore struct{}

func (NoopStore) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }
