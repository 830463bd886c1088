package memory

import (
	"context"
	"sync"
	"time"
)

// TokenDenylist tracks signed-out token IDs until their natural expiry.
type TokenDenylist struct {
	clock func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewTokenDenylist() *TokenDenylist {
	return &TokenDenylist{clock: time.Now, revoked: make(map[string]time.Time)}
}

func (d *TokenDenylist) Revoke(_ context.Context, jti string, until time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purgeLocked()
	d.revoked[jti] = d.clock().Add(until)
	return nil
}

func (d *TokenDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purgeLocked()
	_, revoked := d.revoked[jti]
	return revoked, nil
}

func (d *TokenDenylist) purgeLocked() {
	now := d.clock()
	for jti, expiresAt := range d.revoked {
		if expiresAt.Before(now) {
			delete(d.revoked, jti)
		}
	}
}
