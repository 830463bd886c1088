package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist stores signed-out token IDs in Redis with a TTL matching the
// token's remaining lifetime, so revocations survive instance restarts and
// are shared across replicas.
type TokenDenylist struct {
	client *redis.Client
}

func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client}
}

func (d *TokenDenylist) Revoke(ctx context.Context, jti string, until time.Duration) error {
	if until <= 0 {
		// Already expired; nothing to deny.
		return nil
	}
	return d.client.Set(ctx, d.key(jti), "1", until).Err()
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *TokenDenylist) key(jti string) string {
	return "auth:denied:" + jti
}
