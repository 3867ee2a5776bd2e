// Package cache provides a short-lived read-through cache used by the
// repositories on FindByID. Caching is optional: repositories accept a nil
// Cache and serve everything from their in-memory index.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized entities under string keys with a TTL.
type Cache interface {
	// Get returns the cached value, or "" when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. A zero ttl means the implementation's default.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key sharing a prefix. Used when the
	// repository degrades after a persistence failure.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases the underlying connection.
	Close() error
}
