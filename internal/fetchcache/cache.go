package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Common errors
var (
	ErrNilProducer = errors.New("producer cannot be nil")

	// ErrStoreWrite marks a backing-store write failure. The produced
	// value is still valid when this is returned; callers that treat
	// caching as best-effort check for it with errors.Is.
	ErrStoreWrite = errors.New("cache store write failed")
)

// Status classifies a cache lookup outcome
type Status int

const (
	// StatusMiss means the key was never set (or its record is unreadable)
	StatusMiss Status = iota
	// StatusHit means a live entry was found
	StatusHit
	// StatusStale means an entry was found but its TTL has lapsed
	StatusStale
)

// Result is a tagged lookup outcome. Callers can distinguish "found but
// expired" from "never set"; plain Get collapses both to a miss.
type Result[V any] struct {
	Status Status
	Value  V
}

// entry is a value in the in-memory hot layer
type entry[V any] struct {
	value     V
	writtenAt time.Time
	ttl       time.Duration
}

func (e entry[V]) live(now time.Time) bool {
	return now.Before(e.writtenAt.Add(e.ttl))
}

// Options configures a cache instance
type Options struct {
	// Dir is the backing-store directory (one record file per key).
	// Empty means memory-only, which tests use for isolation.
	Dir string

	// MaxEntries bounds the in-memory hot layer (default 4096).
	MaxEntries int

	// Now overrides the clock, for TTL tests. Defaults to time.Now.
	Now func() time.Time
}

// Cache memoizes fetch results with TTL and coalesces concurrent
// computations for the same key. Values pass through an in-memory LRU
// hot layer backed by one JSON record file per key.
//
// Storage is best-effort: read failures and corrupt records degrade to
// a miss, write failures are surfaced but never withhold the value.
type Cache[V any] struct {
	mu    sync.Mutex
	hot   *lru.Cache[string, entry[V]]
	store *fileStore
	group *singleflight.Group
	now   func() time.Time
}

// New creates a cache instance. Each instance owns its namespace; tests
// construct disposable instances instead of sharing process-wide state.
func New[V any](opts Options) (*Cache[V], error) {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	hot, err := lru.New[string, entry[V]](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create hot layer: %w", err)
	}

	var store *fileStore
	if opts.Dir != "" {
		store, err = newFileStore(opts.Dir)
		if err != nil {
			return nil, err
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Cache[V]{
		hot:   hot,
		store: store,
		group: new(singleflight.Group),
		now:   now,
	}, nil
}

// Get returns the value for key if a live entry exists
func (c *Cache[V]) Get(key string) (V, bool) {
	res := c.Lookup(key)
	return res.Value, res.Status == StatusHit
}

// Lookup returns the tagged outcome for key: hit, miss, or stale.
// A stale or unreadable backing record reads as non-live; callers that
// only care about usable values should use Get.
func (c *Cache[V]) Lookup(key string) Result[V] {
	now := c.now()

	if e, ok := c.hot.Get(key); ok {
		if e.live(now) {
			return Result[V]{Status: StatusHit, Value: e.value}
		}
		c.hot.Remove(key)
		return Result[V]{Status: StatusStale}
	}

	if c.store == nil {
		return Result[V]{Status: StatusMiss}
	}

	var value V
	rec, err := c.store.read(key, &value)
	if err != nil {
		// Corrupt or unreadable record reads as absence
		return Result[V]{Status: StatusMiss}
	}
	e := entry[V]{value: value, writtenAt: rec.WrittenAt, ttl: rec.ttl()}
	if !e.live(now) {
		return Result[V]{Status: StatusStale}
	}

	// Promote to the hot layer
	c.hot.Add(key, e)
	return Result[V]{Status: StatusHit, Value: value}
}

// Set writes the value to both layers with the current timestamp.
// A backing-store write failure is returned but the in-memory entry is
// still populated; correctness never depends on the file layer.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) error {
	now := c.now()
	c.hot.Add(key, entry[V]{value: value, writtenAt: now, ttl: ttl})
	if c.store == nil {
		return nil
	}
	if err := c.store.write(key, value, now, ttl); err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrStoreWrite, key, err)
	}
	return nil
}

// GetOrFetch returns the live value for key, or invokes producer to
// compute it. Concurrent calls for the same key coalesce into a single
// producer invocation; every waiter observes the same outcome. A
// producer failure propagates to all waiters and leaves the key
// uncached, so the next call retries from scratch.
//
// On success the returned error is at worst a backing-store write
// failure; the value is always valid when the producer succeeded.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (V, error)) (V, error) {
	var zero V
	if producer == nil {
		return zero, ErrNilProducer
	}

	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	group := c.group
	c.mu.Unlock()

	type fetched struct {
		value    V
		writeErr error
	}

	v, err, _ := group.Do(key, func() (interface{}, error) {
		// Another waiter may have populated the key while we queued
		if v, ok := c.Get(key); ok {
			return fetched{value: v}, nil
		}
		value, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		return fetched{value: value, writeErr: c.Set(key, value, ttl)}, nil
	})
	if err != nil {
		return zero, err
	}

	f := v.(fetched)
	return f.value, f.writeErr
}

// ClearExpired removes entries whose TTL has lapsed from both layers
// and returns the number of distinct keys removed. Live entries are
// untouched. Corrupt backing records are removed as well, since they
// already read as absent.
func (c *Cache[V]) ClearExpired() int {
	now := c.now()
	removed := make(map[string]bool)

	for _, key := range c.hot.Keys() {
		if e, ok := c.hot.Peek(key); ok && !e.live(now) {
			c.hot.Remove(key)
			removed[key] = true
		}
	}

	if c.store != nil {
		for _, key := range c.store.sweep(now) {
			c.hot.Remove(key)
			removed[key] = true
		}
	}

	return len(removed)
}

// Clear removes everything: both layers and the in-flight coalescing
// state, so later calls never join a producer started before the clear.
// A producer already running completes normally; its waiters receive
// the value and its write may repopulate the cleared cache.
func (c *Cache[V]) Clear() error {
	c.mu.Lock()
	c.group = new(singleflight.Group)
	c.mu.Unlock()

	c.hot.Purge()
	if c.store == nil {
		return nil
	}
	return c.store.clear()
}

// Len returns the number of entries in the hot layer
func (c *Cache[V]) Len() int {
	return c.hot.Len()
}
