// Package semantic provides the embedding-based fallback index used
// when lexical search confidence is insufficient.
//
// Only documents above a relevance threshold are indexed. Each entry is
// keyed by (pattern id, content hash); embeddings are recomputed only
// when the hash changes and are persisted through fetchcache with a
// long TTL, so restarts and metadata churn do not burn provider calls.
// Search embeds the query once and ranks every indexed vector by cosine
// similarity.
package semantic
