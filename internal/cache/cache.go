// Package cache provides a bounded, time-expiring memoization cache with
// per-key request coalescing. It is independent of what it caches; the
// metadata resolution layer builds its keyed caches on top of it.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the value for a key on a cache miss.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// entry is a resolved outcome. Failed loads are cached too (negative
// caching), so repeated misses do not repeatedly hit the loader.
type entry[V any] struct {
	value V
	err   error
}

// Cache memoizes loader outcomes per key with a capacity bound and a fixed
// time-to-live measured from insertion. Reads do not refresh the TTL.
// Concurrent Gets for the same missing key share one in-flight load.
type Cache[V any] struct {
	name    string
	entries *expirable.LRU[string, entry[V]]
	group   singleflight.Group
	load    Loader[V]
}

// New creates a cache holding at most capacity entries for at most ttl each.
// The least recently used entry is evicted under capacity pressure. name
// labels the cache's metrics.
func New[V any](name string, capacity int, ttl time.Duration, load Loader[V]) *Cache[V] {
	c := &Cache[V]{name: name, load: load}
	c.entries = expirable.NewLRU(capacity, func(string, entry[V]) {
		cacheEvictions.WithLabelValues(name).Inc()
	}, ttl)
	return c
}

// Get returns the cached outcome for key, loading it at most once across all
// concurrent callers. A load that fails is replayed from the cache until its
// TTL elapses; it is not retried on every call.
//
// The load runs with the context of the caller that initiated it; later
// waiters share its result regardless of their own contexts.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, error) {
	if e, ok := c.entries.Get(key); ok {
		cacheHits.WithLabelValues(c.name).Inc()
		return e.value, e.err
	}
	cacheMisses.WithLabelValues(c.name).Inc()

	out, _, _ := c.group.Do(key, func() (interface{}, error) {
		// A sibling call may have populated the entry while this caller was
		// waiting to enter the group.
		if e, ok := c.entries.Get(key); ok {
			return e, nil
		}
		value, err := c.load(ctx, key)
		e := entry[V]{value: value, err: err}
		// A load aborted by the initiating caller's context says nothing
		// about the key itself; waiters get the error but the next caller
		// loads fresh.
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			c.entries.Add(key, e)
		}
		return e, nil
	})

	e := out.(entry[V])
	return e.value, e.err
}

// Len reports the number of live entries.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.entries.Purge()
}
