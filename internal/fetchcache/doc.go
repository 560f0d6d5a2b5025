// Package fetchcache provides a generic TTL key/value cache with
// single-flight request coalescing.
//
// Every other pipeline component uses it to avoid redundant work: feed
// fetches, embedding vectors, and assembled query results all pass
// through an instance with their own namespace.
//
// Layout:
//
//	in-memory LRU hot layer
//	        │ miss
//	        ▼
//	one JSON record file per key   {key, payload, writtenAt, ttlSeconds}
//
// Reads of an expired or unreadable record behave identically to
// absence. Writes are best-effort: a file write failure is surfaced but
// the produced value is still returned and cached in memory.
//
// GetOrFetch collapses N concurrent calls for a key into one producer
// invocation. A failed producer propagates its error to every waiter
// without poisoning the key; the next call retries from scratch.
package fetchcache
