package intentcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternlens/patternlens/pkg/types"
)

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func intent(query string, sources ...string) types.SearchIntent {
	return types.SearchIntent{
		Tool:       "get_pattern",
		Query:      query,
		MinQuality: 60,
		Sources:    sources,
	}
}

func result(ids ...string) types.CachedSearchResult {
	scores := make(map[string]int, len(ids))
	for i, id := range ids {
		scores[id] = 100 - i
	}
	return types.CachedSearchResult{
		PatternIDs: ids,
		Scores:     scores,
		TotalCount: len(ids),
	}
}

func TestSetAndGetStampsFingerprint(t *testing.T) {
	c := newTestCache(t, Options{})
	i := intent("swiftui navigation", "a", "b")

	c.Set(i, result("p1", "p2"))

	got, ok := c.Get(i)
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, got.PatternIDs)
	assert.Equal(t, SourceFingerprint([]string{"a", "b"}), got.SourceFingerprint)
	assert.False(t, got.Timestamp.IsZero())
}

func TestReorderedSourcesHitDifferentSetMisses(t *testing.T) {
	c := newTestCache(t, Options{})

	c.Set(intent("swiftui navigation", "a", "b"), result("p1"))

	_, ok := c.Get(intent("swiftui navigation", "b", "a"))
	assert.True(t, ok, "source order must not matter")

	_, ok = c.Get(intent("swiftui navigation", "a"))
	assert.False(t, ok, "a different source set is a miss")
}

func TestLegacyEntryWithoutFingerprintMisses(t *testing.T) {
	c := newTestCache(t, Options{})
	i := intent("swiftui navigation", "a", "b")

	// Simulate an entry that predates fingerprint stamping
	r := result("p1")
	c.entries.Add(BuildCacheKey(i), storedEntry{result: r, writtenAt: time.Now()})

	_, ok := c.Get(i)
	assert.False(t, ok, "missing fingerprint counts as a miss, never a hit")
}

func TestTTLExpiry(t *testing.T) {
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	c := newTestCache(t, Options{TTL: time.Minute, Now: now})
	i := intent("q", "a")

	c.Set(i, result("p1"))
	_, ok := c.Get(i)
	assert.True(t, ok)

	mu.Lock()
	clock = clock.Add(2 * time.Minute)
	mu.Unlock()
	_, ok = c.Get(i)
	assert.False(t, ok)
}

func TestStatsAndClear(t *testing.T) {
	c := newTestCache(t, Options{})
	i := intent("q", "a")

	c.Get(i) // miss
	c.Set(i, result("p1"))
	c.Get(i) // hit
	c.Get(i) // hit

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)

	c.Clear()
	stats = c.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.HitRate)
	_, ok := c.Get(i)
	assert.False(t, ok)
}

func TestClearDoesNotDiscardStraddlingProduce(t *testing.T) {
	c := newTestCache(t, Options{})
	i := intent("q", "a")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		r, err := c.GetOrFetch(context.Background(), i, func(context.Context) (types.CachedSearchResult, error) {
			close(started)
			<-release
			return result("p1"), nil
		})
		assert.NoError(t, err)
		assert.Equal(t, []string{"p1"}, r.PatternIDs)
	}()

	<-started
	c.Clear()
	close(release)
	<-done

	// A producer running across the clear still completes and writes;
	// only the coalescing state and counters were discarded.
	got, ok := c.Get(i)
	require.True(t, ok)
	assert.Equal(t, []string{"p1"}, got.PatternIDs)
}

func TestGetOrFetchCoalescesIdenticalIntents(t *testing.T) {
	c := newTestCache(t, Options{})
	i := intent("swiftui navigation", "a", "b")

	var calls atomic.Int32
	release := make(chan struct{})
	producer := func(ctx context.Context) (types.CachedSearchResult, error) {
		calls.Add(1)
		<-release
		return result("p1"), nil
	}

	const n = 20
	results := make([]*types.CachedSearchResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for j := 0; j < n; j++ {
		go func(j int) {
			defer wg.Done()
			results[j], errs[j] = c.GetOrFetch(context.Background(), i, producer)
		}(j)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "identical intents share one execution")
	for j := 0; j < n; j++ {
		require.NoError(t, errs[j])
		assert.Equal(t, []string{"p1"}, results[j].PatternIDs)
	}
}

func TestGetOrFetchDistinctIntentsDoNotContaminate(t *testing.T) {
	c := newTestCache(t, Options{})

	const n = 8
	out := make([]*types.CachedSearchResult, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for j := 0; j < n; j++ {
		go func(j int) {
			defer wg.Done()
			i := intent(fmt.Sprintf("query number %d", j), "a")
			id := fmt.Sprintf("pattern-%d", j)
			var err error
			out[j], err = c.GetOrFetch(context.Background(), i, func(ctx context.Context) (types.CachedSearchResult, error) {
				return result(id), nil
			})
			require.NoError(t, err)
		}(j)
	}
	wg.Wait()

	for j := 0; j < n; j++ {
		assert.Equal(t, []string{fmt.Sprintf("pattern-%d", j)}, out[j].PatternIDs,
			"intent %d must receive its own payload", j)
	}
}

func TestGetOrFetchFailurePropagatesAndRetries(t *testing.T) {
	c := newTestCache(t, Options{})
	i := intent("q", "a")

	boom := errors.New("pipeline failed")
	_, err := c.GetOrFetch(context.Background(), i, func(ctx context.Context) (types.CachedSearchResult, error) {
		return types.CachedSearchResult{}, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := c.GetOrFetch(context.Background(), i, func(ctx context.Context) (types.CachedSearchResult, error) {
		return result("recovered"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"recovered"}, got.PatternIDs)
}
