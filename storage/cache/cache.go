package cache

import (
	"context"
	"time"
)

// Cache defines the set of methods a response cache needs to implement.
type Cache interface {
	// Establishes a connection to the cache backend.
	Connect(url string) error
	// Disconnects from the cache backend.
	Disconnect() error
	// Stores a value under a key with a time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Retrieves the value stored under a key. Returns ErrCacheMiss if the
	// key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
}
