// Package cache stores downloaded index files and other byte blobs with a
// time-to-live.
//
// Three backends implement [Cache]:
//   - [FileCache]: one file per entry under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance, for several machines counting
//     against the same mirror
//   - [NullCache]: caching disabled
//
// [Namespace] wraps any backend so that keys from different sources
// (mirror indexes, pool files) never collide.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or nil and false on a miss or
	// an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl <= 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Namespaced prefixes every key before passing it to the wrapped Cache.
type Namespaced struct {
	inner  Cache
	prefix string
}

// Namespace returns a view of c whose keys are prefixed with prefix.
// Closing the view does not close c.
func Namespace(c Cache, prefix string) *Namespaced {
	if n, ok := c.(*Namespaced); ok {
		return &Namespaced{inner: n.inner, prefix: n.prefix + prefix}
	}
	return &Namespaced{inner: c, prefix: prefix}
}

// Get retrieves prefix+key from the wrapped cache.
func (n *Namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

// Set stores data under prefix+key.
func (n *Namespaced) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return n.inner.Set(ctx, n.prefix+key, data, ttl)
}

// Delete removes prefix+key.
func (n *Namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

// Close does nothing; the wrapped cache is owned by the caller.
func (n *Namespaced) Close() error { return nil }

var _ Cache = (*Namespaced)(nil)
