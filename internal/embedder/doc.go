// Package embedder generates vector embeddings through pluggable
// providers.
//
// Providers:
//   - openai: OpenAI embeddings API (or any compatible endpoint)
//   - jina:   Jina AI embeddings API
//   - local:  deterministic hash-derived vectors for offline use
//
// Provider selection is environment-driven through NewFromEnv, or
// explicit through New. API calls retry with exponential backoff; no
// retry logic leaks into callers. Handle wraps a factory as a shared,
// lazily-initialized embedder whose first-time initialization is
// coalesced across goroutines.
package embedder
