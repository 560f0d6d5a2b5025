package lexical

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/patternlens/patternlens/pkg/types"
)

// Field boosts: title matches count most, then topic tags, then body
const (
	boostTitle = 3.0
	boostTopic = 2.0
	boostBody  = 1.0

	// Match-quality weights for fuzzy retrieval
	weightExact  = 1.0
	weightPrefix = 0.7
	weightFuzzy  = 0.4

	// fuzzyMinLen is the shortest query term eligible for edit-distance
	// matching; shorter terms produce too many accidental neighbors.
	fuzzyMinLen = 4

	// bodyIndexLimit caps how much of a pattern body is indexed
	bodyIndexLimit = 4000

	// Combined-score blend: match quality vs static relevance.
	// These weights are a contract with callers, not tunables.
	matchWeight  = 0.8
	staticWeight = 0.2
)

// Options configures a search call
type Options struct {
	Limit    int // Maximum results (default 10)
	MinScore int // Drop hits with a combined score below this
}

// Index ranks a document set against free-text queries using an
// inverted token index with field boosts.
//
// The index is rebuilt only when the order-insensitive fingerprint of
// the document-id set changes; when the set is unchanged, document
// references are refreshed in place so updated metadata is reflected
// without re-tokenizing anything.
type Index struct {
	mu          sync.Mutex
	fingerprint uint64
	docs        []types.Pattern
	byID        map[string]int
	postings    map[string]map[int]float64 // token -> doc position -> boosted weight
}

// New creates an empty index
func New() *Index {
	return &Index{}
}

// Search ranks documents against query and returns hits ordered by
// descending combined score.
func (x *Index) Search(documents []types.Pattern, query string, opts Options) []types.RankedPattern {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	queryTokens := dedupe(Tokenize(query))
	if len(queryTokens) == 0 {
		return nil
	}

	x.mu.Lock()
	x.ensure(documents)
	hits := x.match(queryTokens)
	docs := x.docs
	x.mu.Unlock()

	if len(hits) == 0 {
		return nil
	}

	ranked := score(hits, docs, len(queryTokens))

	if opts.MinScore > 0 {
		filtered := ranked[:0]
		for _, r := range ranked {
			if r.Score >= opts.MinScore {
				filtered = append(filtered, r)
			}
		}
		ranked = filtered
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// ensure rebuilds the postings when the document-id set changed, and
// otherwise just refreshes the stored document references. Callers hold
// the lock.
func (x *Index) ensure(documents []types.Pattern) {
	fp := fingerprintIDs(documents)
	if fp == x.fingerprint && x.postings != nil {
		for _, d := range documents {
			if pos, ok := x.byID[d.ID]; ok {
				x.docs[pos] = d
			}
		}
		return
	}

	x.fingerprint = fp
	x.docs = make([]types.Pattern, len(documents))
	copy(x.docs, documents)
	x.byID = make(map[string]int, len(documents))
	x.postings = make(map[string]map[int]float64)

	for pos, d := range x.docs {
		x.byID[d.ID] = pos
		x.addField(pos, d.Title, boostTitle)
		x.addField(pos, strings.Join(d.Topics, " "), boostTopic)
		body := d.Excerpt + " " + d.Content
		if len(body) > bodyIndexLimit {
			body = body[:bodyIndexLimit]
		}
		x.addField(pos, body, boostBody)
	}
}

func (x *Index) addField(pos int, text string, boost float64) {
	for _, tok := range Tokenize(text) {
		m := x.postings[tok]
		if m == nil {
			m = make(map[int]float64)
			x.postings[tok] = m
		}
		m[pos] += boost
	}
}

// fingerprintIDs accumulates a rolling hash over each id's character
// codes, summed across documents so the result is independent of array
// order but sensitive to any id-set change.
func fingerprintIDs(documents []types.Pattern) uint64 {
	var fp uint64
	for _, d := range documents {
		var h uint64
		for _, c := range d.ID {
			h = h*31 + uint64(c)
		}
		fp += h
	}
	return fp
}

// hit accumulates raw match evidence for one document
type hit struct {
	raw     float64
	matched map[string]struct{}
}

// match runs fuzzy, prefix-tolerant OR matching of query tokens against
// the postings. Each query token contributes its best match quality per
// index term, weighted by the stored field boost.
func (x *Index) match(queryTokens []string) map[int]*hit {
	hits := make(map[int]*hit)

	record := func(qt string, docs map[int]float64, weight float64) {
		for pos, boosted := range docs {
			h := hits[pos]
			if h == nil {
				h = &hit{matched: make(map[string]struct{})}
				hits[pos] = h
			}
			h.raw += boosted * weight
			h.matched[qt] = struct{}{}
		}
	}

	for _, qt := range queryTokens {
		if docs, ok := x.postings[qt]; ok {
			record(qt, docs, weightExact)
		}
		for term, docs := range x.postings {
			if term == qt {
				continue
			}
			switch {
			case strings.HasPrefix(term, qt) || strings.HasPrefix(qt, term):
				record(qt, docs, weightPrefix)
			case len(qt) >= fuzzyMinLen && withinOneEdit(term, qt):
				record(qt, docs, weightFuzzy)
			}
		}
	}
	return hits
}

// score converts raw hits into combined scores:
//
//	relative   = raw / bestRaw * 100
//	confidence = min(bestRaw/10, 1)     absolute-magnitude sanity check
//	coverage   = matched terms / query terms
//	combined   = round(relative*confidence*coverage*0.8 + static*0.2)
func score(hits map[int]*hit, docs []types.Pattern, queryTermCount int) []types.RankedPattern {
	var bestRaw float64
	for _, h := range hits {
		if h.raw > bestRaw {
			bestRaw = h.raw
		}
	}
	if bestRaw == 0 {
		return nil
	}
	confidence := math.Min(bestRaw/10, 1)

	ranked := make([]types.RankedPattern, 0, len(hits))
	for pos, h := range hits {
		doc := docs[pos]
		relative := h.raw / bestRaw * 100
		coverage := float64(len(h.matched)) / float64(queryTermCount)
		combined := math.Round(relative*confidence*coverage*matchWeight + float64(doc.RelevanceScore)*staticWeight)

		terms := make([]string, 0, len(h.matched))
		for t := range h.matched {
			terms = append(terms, t)
		}
		sort.Strings(terms)

		ranked = append(ranked, types.RankedPattern{
			Pattern:      doc,
			Score:        int(combined),
			MatchedTerms: terms,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Pattern.RelevanceScore != ranked[j].Pattern.RelevanceScore {
			return ranked[i].Pattern.RelevanceScore > ranked[j].Pattern.RelevanceScore
		}
		return ranked[i].Pattern.ID < ranked[j].Pattern.ID
	})
	return ranked
}

// withinOneEdit reports whether a and b are at Levenshtein distance
// exactly one
func withinOneEdit(a, b string) bool {
	la, lb := len(a), len(b)
	if la > lb {
		a, b, la, lb = b, a, lb, la
	}
	if lb-la > 1 {
		return false
	}
	// Find first divergence
	i := 0
	for i < la && a[i] == b[i] {
		i++
	}
	if la == lb {
		if i == la {
			return false // identical
		}
		return a[i+1:] == b[i+1:] // one substitution
	}
	return a[i:] == b[i+1:] // one insertion in b
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
