package intentcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/patternlens/patternlens/pkg/types"
)

// Common errors
var (
	ErrNilProducer = errors.New("producer cannot be nil")
)

const (
	// DefaultTTL is how long a resolved query result stays servable
	DefaultTTL = time.Hour

	// DefaultMaxEntries bounds the in-memory result cache
	DefaultMaxEntries = 1000
)

// Stats reports cache telemetry
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
}

// Options configures a cache instance
type Options struct {
	MaxEntries int
	TTL        time.Duration
	Now        func() time.Time // Clock override for TTL tests
}

type storedEntry struct {
	result    types.CachedSearchResult
	writtenAt time.Time
}

// Cache memoizes fully-resolved query results at the level of "what was
// asked," independent of how the result was produced. Concurrent
// identical asks coalesce into one pipeline execution; different
// intents never share one.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, storedEntry]
	group   *singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache instance
func New(opts Options) (*Cache, error) {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, storedEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create intent cache: %w", err)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: entries,
		group:   new(singleflight.Group),
		ttl:     ttl,
		now:     now,
	}, nil
}

// Get returns the cached result for intent. Expired entries, and
// entries whose stored source fingerprint does not match the freshly
// computed one (including legacy entries missing the field), count as
// misses. Every lookup increments the hit or miss counter.
func (c *Cache) Get(intent types.SearchIntent) (*types.CachedSearchResult, bool) {
	result, ok := c.peek(intent)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return result, ok
}

// peek is Get without the telemetry, for internal re-checks that are
// not caller-visible lookups
func (c *Cache) peek(intent types.SearchIntent) (*types.CachedSearchResult, bool) {
	key := BuildCacheKey(intent)

	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.writtenAt.Add(c.ttl)) {
		c.entries.Remove(key)
		return nil, false
	}
	if e.result.SourceFingerprint != SourceFingerprint(intent.Sources) {
		// Stale evidence from a different source set; never a hit
		c.entries.Remove(key)
		return nil, false
	}

	result := e.result
	return &result, true
}

// Set stores the result under the intent's key, stamped with the source
// fingerprint and current time
func (c *Cache) Set(intent types.SearchIntent, result types.CachedSearchResult) {
	now := c.now()
	result.SourceFingerprint = SourceFingerprint(intent.Sources)
	result.Timestamp = now
	c.entries.Add(BuildCacheKey(intent), storedEntry{result: result, writtenAt: now})
}

// GetOrFetch returns the cached result for intent or runs producer to
// resolve it. N concurrent identical intents invoke producer exactly
// once and all receive the same result; a producer failure propagates
// to every waiter and leaves the intent uncached.
func (c *Cache) GetOrFetch(ctx context.Context, intent types.SearchIntent, producer func(context.Context) (types.CachedSearchResult, error)) (*types.CachedSearchResult, error) {
	if producer == nil {
		return nil, ErrNilProducer
	}

	if result, ok := c.Get(intent); ok {
		return result, nil
	}

	c.mu.Lock()
	group := c.group
	c.mu.Unlock()

	key := BuildCacheKey(intent)
	v, err, _ := group.Do(key, func() (interface{}, error) {
		if result, ok := c.peek(intent); ok {
			return result, nil
		}
		result, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(intent, result)
		// Re-read so every waiter sees the stamped copy
		stamped, ok := c.peek(intent)
		if !ok {
			stamped = &result
		}
		return stamped, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.CachedSearchResult), nil
}

// Stats returns hit/miss telemetry
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: rate}
}

// Clear removes all entries, resets the counters to zero, and discards
// the in-flight coalescing state, so later calls never join a producer
// started before the clear. A producer already running completes
// normally and its write may repopulate the cleared cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.group = new(singleflight.Group)
	c.mu.Unlock()

	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Len returns the number of cached results
func (c *Cache) Len() int {
	return c.entries.Len()
}
