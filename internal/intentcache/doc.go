// Package intentcache memoizes complete query results keyed by a
// canonical, fingerprinted representation of what the caller asked.
//
// The cache key digests the tool name, the token-sorted query, the
// quality filters, and an order-insensitive fingerprint of the selected
// source set, so semantically identical intents always collide and
// semantically different ones never do. Lookups verify the stored
// fingerprint against the intent's freshly computed one; mismatches
// read as misses. GetOrFetch applies the same single-flight guarantee
// as fetchcache, but to whole-pipeline executions.
package intentcache
