// Package lexical implements token-based ranking of a document set
// against free-text queries.
//
// Documents are tokenized into an inverted index with field boosts
// (title above topic tags above body). Queries run through the same
// tokenizer, match with OR semantics tolerating prefixes and one-edit
// typos, and each hit's raw score is folded into a combined 0-100
// ranking score together with the document's static relevance score.
//
// The index rebuilds only when the fingerprint of the document-id set
// changes, so repeated queries over an unchanged set never pay for
// re-tokenization.
package lexical
