package intentcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/patternlens/patternlens/pkg/types"
)

// BuildCacheKey canonicalizes an intent into a deterministic digest.
// Query tokens are sorted and whitespace-collapsed and the source set
// is fingerprinted order-insensitively, so field reordering or
// source-array reordering never changes the key.
func BuildCacheKey(intent types.SearchIntent) string {
	requireCode := "any"
	if intent.RequireCode != nil {
		requireCode = strconv.FormatBool(*intent.RequireCode)
	}

	canonical := strings.Join([]string{
		intent.Tool,
		canonicalizeQuery(intent.Query),
		strconv.Itoa(intent.MinQuality),
		requireCode,
		SourceFingerprint(intent.Sources),
	}, "\x00")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// SourceFingerprint computes an order-insensitive digest over a source
// name set. A cached result is only valid evidence for an intent whose
// fingerprint matches exactly.
func SourceFingerprint(sources []string) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = strings.ToLower(strings.TrimSpace(s))
	}
	sort.Strings(names)

	sum := sha256.Sum256([]byte(strings.Join(names, "\x00")))
	return hex.EncodeToString(sum[:16])
}

// canonicalizeQuery lowercases, collapses whitespace, and sorts tokens
// so "swiftui   navigation" and "navigation swiftui" share a key
func canonicalizeQuery(query string) string {
	tokens := strings.Fields(strings.ToLower(query))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
