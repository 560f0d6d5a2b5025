package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/patternlens/patternlens/internal/fetchcache"
	"github.com/patternlens/patternlens/pkg/types"
)

const (
	// DefaultMinRelevanceScore filters low-quality documents out of the
	// index so embedding computation is not spent on them
	DefaultMinRelevanceScore = 40

	// DefaultMaxEntries bounds the in-memory index for long-running
	// processes; lowest-relevance entries are dropped first when the
	// current high-quality population exceeds it
	DefaultMaxEntries = 2048

	// embeddingTTL keeps persisted vectors across restarts; content
	// hashing makes longer retention safe
	embeddingTTL = 7 * 24 * time.Hour
)

// Common errors
var (
	ErrNoEmbedder = errors.New("embedding provider not configured")
)

// Embedder generates a fixed-length vector for a text. Retries are the
// provider's responsibility, not this package's.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config tunes an index instance
type Config struct {
	MinRelevanceScore int // Default DefaultMinRelevanceScore
	MaxEntries        int // Default DefaultMaxEntries
}

// entry is one indexed document with its embedding
type entry struct {
	pattern     types.Pattern
	contentHash string
	vector      []float32
	norm        float64
}

// Index is the embedding-based fallback index. Callers invoke it only
// when lexical confidence is low; the activation decision lives with
// the caller, not here.
//
// The index is incrementally maintained: an unchanged (id, contentHash)
// pair never recomputes its embedding, persisted vectors are consulted
// before the provider, and entries absent from the current input set
// are evicted so index size tracks the high-quality document population.
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	vectors  *fetchcache.Cache[[]float32]
	entries  map[string]*entry
	cfg      Config
}

// NewIndex creates an index. vectors persists embeddings between runs
// and may be nil, in which case every cold start recomputes.
func NewIndex(embedder Embedder, vectors *fetchcache.Cache[[]float32], cfg Config) *Index {
	if cfg.MinRelevanceScore <= 0 {
		cfg.MinRelevanceScore = DefaultMinRelevanceScore
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Index{
		embedder: embedder,
		vectors:  vectors,
		entries:  make(map[string]*entry),
		cfg:      cfg,
	}
}

// Index brings the in-memory index in line with the given document set.
//
// Documents below the relevance threshold are skipped entirely. For the
// rest, the embedding is recomputed only when the content hash changed;
// a metadata-only change (score, topics) just refreshes the stored
// document. An unavailable provider fails loudly rather than leaving
// the caller with a silently empty index.
func (x *Index) Index(ctx context.Context, patterns []types.Pattern) error {
	if x.embedder == nil {
		return ErrNoEmbedder
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	current := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		if p.RelevanceScore < x.cfg.MinRelevanceScore {
			continue
		}
		current[p.ID] = true

		hash := contentHash(p)
		if e, ok := x.entries[p.ID]; ok && e.contentHash == hash {
			// Same content: keep the vector, refresh the metadata
			e.pattern = p
			continue
		}

		vec, err := x.embed(ctx, p.ID, hash, p.EmbeddingText())
		if err != nil {
			return fmt.Errorf("embed pattern %s: %w", p.ID, err)
		}
		x.entries[p.ID] = &entry{
			pattern:     p,
			contentHash: hash,
			vector:      vec,
			norm:        norm(vec),
		}
	}

	// Evict ids no longer in the input set
	for id := range x.entries {
		if !current[id] {
			delete(x.entries, id)
		}
	}

	x.enforceCap()
	return nil
}

// embed resolves a vector through the persistence cache, calling the
// provider only on a true miss. A persisted-write failure is tolerated;
// a provider failure is not.
func (x *Index) embed(ctx context.Context, id, hash, text string) ([]float32, error) {
	producer := func(ctx context.Context) ([]float32, error) {
		return x.embedder.Embed(ctx, text)
	}
	if x.vectors == nil {
		return producer(ctx)
	}
	key := "embedding:" + id + ":" + hash
	vec, err := x.vectors.GetOrFetch(ctx, key, embeddingTTL, producer)
	if err != nil && !errors.Is(err, fetchcache.ErrStoreWrite) {
		return nil, err
	}
	return vec, nil
}

// enforceCap drops lowest-relevance entries when the index outgrows its
// bound. Callers hold the lock.
func (x *Index) enforceCap() {
	excess := len(x.entries) - x.cfg.MaxEntries
	if excess <= 0 {
		return
	}
	all := make([]*entry, 0, len(x.entries))
	for _, e := range x.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].pattern.RelevanceScore != all[j].pattern.RelevanceScore {
			return all[i].pattern.RelevanceScore < all[j].pattern.RelevanceScore
		}
		return all[i].pattern.ID < all[j].pattern.ID
	})
	for i := 0; i < excess; i++ {
		delete(x.entries, all[i].pattern.ID)
	}
}

// Search embeds the query once and returns the topK most similar
// documents by cosine similarity. A provider failure is returned as an
// error, never disguised as "no matches."
func (x *Index) Search(ctx context.Context, query string, topK int) ([]types.RankedPattern, error) {
	if x.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if topK <= 0 {
		topK = 5
	}

	x.mu.RLock()
	empty := len(x.entries) == 0
	x.mu.RUnlock()
	if empty {
		return nil, nil
	}

	qvec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qnorm := norm(qvec)

	type scored struct {
		pattern    types.Pattern
		similarity float64
	}

	x.mu.RLock()
	candidates := make([]scored, 0, len(x.entries))
	for _, e := range x.entries {
		sim := cosineSimilarity(qvec, e.vector, qnorm, e.norm)
		if sim <= 0 {
			continue
		}
		candidates = append(candidates, scored{pattern: e.pattern, similarity: sim})
	}
	x.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].pattern.ID < candidates[j].pattern.ID
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]types.RankedPattern, len(candidates))
	for i, c := range candidates {
		results[i] = types.RankedPattern{
			Pattern:  c.pattern,
			Rank:     i + 1,
			Score:    int(math.Round(c.similarity * 100)),
			Semantic: true,
		}
	}
	return results, nil
}

// Len returns the number of indexed documents
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// contentHash hashes the semantically relevant text of a pattern, so a
// cached embedding stays valid across metadata-only updates
func contentHash(p types.Pattern) string {
	sum := sha256.Sum256([]byte(p.EmbeddingText()))
	return hex.EncodeToString(sum[:])
}
