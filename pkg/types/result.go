package types

import "time"

// RankedPattern is a single search hit with its combined ranking score
type RankedPattern struct {
	Pattern Pattern
	Rank    int // Position in result set (1-based)

	// Score is the combined ranking score (0-100): match quality blended
	// with the pattern's static relevance score.
	Score int

	// MatchedTerms lists the query terms found in this pattern
	// (lexical hits only; empty for semantic hits).
	MatchedTerms []string

	// Semantic marks hits recovered by the embedding fallback rather
	// than lexical matching.
	Semantic bool
}

// CachedSearchResult is a fully-resolved query result as stored by the
// intent cache.
type CachedSearchResult struct {
	PatternIDs []string       `json:"patternIds"`
	Scores     map[string]int `json:"scores"`
	TotalCount int            `json:"totalCount"`

	// Patterns is an optional denormalized copy of the full documents
	// for fast re-serving without touching the sources.
	Patterns []Pattern `json:"patterns,omitempty"`

	// SourceFingerprint identifies the source set this result was
	// produced from. A result is only valid evidence for an intent
	// whose fingerprint matches exactly.
	SourceFingerprint string    `json:"sourceFingerprint"`
	Timestamp         time.Time `json:"timestamp"`
}
