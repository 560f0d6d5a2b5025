// Package orchestrator runs the full retrieval pipeline: source
// fetching, quality filters, lexical ranking, the semantic fallback,
// and whole-query memoization in the intent cache.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/patternlens/patternlens/internal/fetchcache"
	"github.com/patternlens/patternlens/internal/intentcache"
	"github.com/patternlens/patternlens/internal/lexical"
	"github.com/patternlens/patternlens/internal/patternstore"
	"github.com/patternlens/patternlens/internal/semantic"
	"github.com/patternlens/patternlens/internal/source"
	"github.com/patternlens/patternlens/pkg/types"
)

// Common errors
var (
	ErrNoSources        = errors.New("no sources configured")
	ErrUnknownSource    = errors.New("unknown source")
	ErrAllSourcesFailed = errors.New("all sources failed")
)

const (
	// DefaultFetchTTL is how long fetched source documents stay fresh
	DefaultFetchTTL = 15 * time.Minute

	// DefaultMinLexicalScore is the combined-score floor below which the
	// best lexical hit is considered weak and the semantic fallback runs
	DefaultMinLexicalScore = 35

	// DefaultSemanticTopK bounds how many fallback hits are merged in
	DefaultSemanticTopK = 5
)

// Config tunes the pipeline
type Config struct {
	FetchTTL        time.Duration
	MinLexicalScore int
	SemanticTopK    int
}

// Orchestrator resolves search intents against the configured sources
type Orchestrator struct {
	sources map[string]source.Source
	names   []string // sorted
	fetches *fetchcache.Cache[[]types.Pattern]
	lex     *lexical.Index
	sem     *semantic.Index // nil disables the fallback
	intents *intentcache.Cache
	store   *patternstore.Store // nil disables warm-start persistence
	cfg     Config
	storeMu sync.Mutex
}

// New creates an orchestrator. sem and store may be nil; the pipeline
// degrades to lexical-only and fetch-every-cold-start respectively.
func New(sources []source.Source, fetches *fetchcache.Cache[[]types.Pattern],
	intents *intentcache.Cache, sem *semantic.Index, store *patternstore.Store, cfg Config) (*Orchestrator, error) {

	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if cfg.FetchTTL <= 0 {
		cfg.FetchTTL = DefaultFetchTTL
	}
	if cfg.MinLexicalScore <= 0 {
		cfg.MinLexicalScore = DefaultMinLexicalScore
	}
	if cfg.SemanticTopK <= 0 {
		cfg.SemanticTopK = DefaultSemanticTopK
	}

	byName := make(map[string]source.Source, len(sources))
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, dup := byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate source %q", s.Name())
		}
		byName[s.Name()] = s
		names = append(names, s.Name())
	}
	sort.Strings(names)

	return &Orchestrator{
		sources: byName,
		names:   names,
		fetches: fetches,
		lex:     lexical.New(),
		sem:     sem,
		intents: intents,
		store:   store,
		cfg:     cfg,
	}, nil
}

// SourceNames returns the configured source names, sorted
func (o *Orchestrator) SourceNames() []string {
	out := make([]string, len(o.names))
	copy(out, o.names)
	return out
}

// Resolve answers a search intent, serving from the intent cache when a
// result with matching source evidence is still live.
func (o *Orchestrator) Resolve(ctx context.Context, intent types.SearchIntent) (*types.CachedSearchResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	// An empty source list means "all"; pin the concrete set so the
	// cached result carries exact evidence of what it was built from.
	if len(intent.Sources) == 0 {
		intent.Sources = o.SourceNames()
	} else {
		for _, name := range intent.Sources {
			if _, ok := o.sources[name]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
			}
		}
	}

	return o.intents.GetOrFetch(ctx, intent, func(ctx context.Context) (types.CachedSearchResult, error) {
		return o.resolve(ctx, intent)
	})
}

// resolve runs the pipeline for a cache miss
func (o *Orchestrator) resolve(ctx context.Context, intent types.SearchIntent) (types.CachedSearchResult, error) {
	patterns, err := o.gather(ctx, intent.Sources)
	if err != nil {
		return types.CachedSearchResult{}, err
	}

	patterns = filter(patterns, intent)

	hits := o.lex.Search(patterns, intent.Query, lexical.Options{})

	if o.sem != nil && needsFallback(hits, o.cfg.MinLexicalScore) {
		merged, err := o.withSemantic(ctx, patterns, intent.Query, hits)
		switch {
		case err == nil:
			hits = merged
		case len(hits) == 0:
			// With nothing lexical to serve, a provider outage must not
			// masquerade as an empty result, much less a cached one.
			return types.CachedSearchResult{}, fmt.Errorf("semantic fallback: %w", err)
		default:
			log.Printf("semantic fallback failed, serving lexical hits: %v", err)
		}
	}

	result := types.CachedSearchResult{
		PatternIDs: make([]string, 0, len(hits)),
		Scores:     make(map[string]int, len(hits)),
		TotalCount: len(hits),
		Patterns:   make([]types.Pattern, 0, len(hits)),
	}
	for _, h := range hits {
		result.PatternIDs = append(result.PatternIDs, h.Pattern.ID)
		result.Scores[h.Pattern.ID] = h.Score
		result.Patterns = append(result.Patterns, h.Pattern)
	}
	return result, nil
}

// gather fetches documents from the requested sources concurrently,
// through the fetch cache. A subset of sources failing is tolerated;
// every source failing is not.
func (o *Orchestrator) gather(ctx context.Context, names []string) ([]types.Pattern, error) {
	var (
		mu       sync.Mutex
		patterns []types.Pattern
		failures int
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		src := o.sources[name]
		g.Go(func() error {
			fetched, err := o.fetches.GetOrFetch(gctx, "source:"+src.Name(), o.cfg.FetchTTL, func(ctx context.Context) ([]types.Pattern, error) {
				docs, err := src.FetchPatterns(ctx)
				if err != nil {
					return nil, err
				}
				o.persist(src.Name(), docs)
				return docs, nil
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil && !errors.Is(err, fetchcache.ErrStoreWrite) {
				log.Printf("source %s: fetch failed: %v", src.Name(), err)
				failures++
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			patterns = append(patterns, fetched...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if failures == len(names) {
		if stored := o.restore(names); len(stored) > 0 {
			log.Printf("all %d sources failed, serving %d stored documents", failures, len(stored))
			return stored, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrAllSourcesFailed, firstErr)
	}
	return patterns, nil
}

// persist writes a fetch cycle to the catalog store, best effort
func (o *Orchestrator) persist(sourceName string, patterns []types.Pattern) {
	if o.store == nil {
		return
	}
	o.storeMu.Lock()
	defer o.storeMu.Unlock()
	if err := o.store.UpsertPatterns(sourceName, patterns); err != nil {
		log.Printf("source %s: catalog write failed: %v", sourceName, err)
		return
	}
	if err := o.store.SetLastRefresh(); err != nil {
		log.Printf("catalog refresh stamp failed: %v", err)
	}
}

// restore reads the last persisted fetch cycle for the given sources
func (o *Orchestrator) restore(names []string) []types.Pattern {
	if o.store == nil {
		return nil
	}
	o.storeMu.Lock()
	defer o.storeMu.Unlock()
	stored, err := o.store.GetPatterns(patternstore.QueryOpts{Sources: names})
	if err != nil {
		log.Printf("catalog read failed: %v", err)
		return nil
	}
	return stored
}

// withSemantic augments weak lexical results with embedding-similarity
// hits. The caller decides whether a failure here fails the query or
// degrades to the lexical hits.
func (o *Orchestrator) withSemantic(ctx context.Context, patterns []types.Pattern, query string, hits []types.RankedPattern) ([]types.RankedPattern, error) {
	if err := o.sem.Index(ctx, patterns); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	semHits, err := o.sem.Search(ctx, query, o.cfg.SemanticTopK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.Pattern.ID] = true
	}
	for _, h := range semHits {
		if seen[h.Pattern.ID] {
			continue
		}
		seen[h.Pattern.ID] = true
		h.Rank = len(hits) + 1
		hits = append(hits, h)
	}
	return hits, nil
}

// filter applies the intent's quality and code filters
func filter(patterns []types.Pattern, intent types.SearchIntent) []types.Pattern {
	out := patterns[:0:0]
	for _, p := range patterns {
		if p.RelevanceScore < intent.MinQuality {
			continue
		}
		if intent.RequireCode != nil && p.HasCode != *intent.RequireCode {
			continue
		}
		out = append(out, p)
	}
	return out
}

// needsFallback reports whether the lexical results are weak enough to
// warrant the embedding fallback
func needsFallback(hits []types.RankedPattern, minScore int) bool {
	return len(hits) == 0 || hits[0].Score < minScore
}

// Stats returns intent cache telemetry
func (o *Orchestrator) Stats() intentcache.Stats {
	return o.intents.Stats()
}

// ClearCaches empties the intent and fetch caches
func (o *Orchestrator) ClearCaches() error {
	o.intents.Clear()
	return o.fetches.Clear()
}
