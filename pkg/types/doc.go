// Package types defines the shared data model for the retrieval pipeline:
// patterns (documents aggregated from content sources), search intents,
// and ranked/cached search results.
//
// These types are shared between the internal pipeline packages and
// exposed to callers embedding the pipeline, so they live under pkg/
// rather than internal/.
package types
