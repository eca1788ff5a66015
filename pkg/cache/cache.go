// Package cache provides the byte-level caches used by blockdeck.
//
// Three implementations share the [Cache] interface:
//   - [FileCache] for the CLI, under ~/.cache/blockdeck
//   - [RedisCache] for the HTTP service when several instances share state
//   - [NullCache] when caching is disabled
//
// Keys are produced by a [Keyer] so that the CLI and the service agree on
// layout, and so a [ScopedKeyer] can isolate one workspace from another.
package cache

import (
	"context"
	"time"
)

// Default lifetimes for cached entries.
const (
	// TTLChildren bounds how stale a raw children listing may be.
	TTLChildren = 15 * time.Minute

	// TTLBlocks is the lifetime of a normalized block tree.
	TTLBlocks = time.Hour

	// TTLImage is the lifetime of fetched image bytes. Hosted file URLs
	// from the content source expire after about an hour, but the bytes
	// they pointed to do not change.
	TTLImage = 24 * time.Hour
)

// Cache stores opaque byte slices under string keys.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. The boolean is false on a miss;
	// a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any underlying resources.
	Close() error
}

// nullCache never stores anything.
type nullCache struct{}

// NewNullCache returns a cache that always misses, for --no-cache and for
// clients built without a store.
func NewNullCache() Cache { return nullCache{} }

func (nullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nullCache) Delete(context.Context, string) error                     { return nil }
func (nullCache) Close() error                                             { return nil }
