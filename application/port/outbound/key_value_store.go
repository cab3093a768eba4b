package outbound

import (
	"context"
	"errors"
	"time"
)

var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the narrow surface the auth subsystem needs from its
// backing store: per-key TTL expiry and single-key atomicity. The store
// owns the lifetime of everything written through it; expired entries
// vanish on their own and the application never sweeps them.
type KeyValueStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrKeyNotFound for absent or expired keys.
	Get(ctx context.Context, key string) (string, error)
	// Delete is idempotent; removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
