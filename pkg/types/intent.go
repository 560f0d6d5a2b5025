package types

// SearchIntent is the canonical description of what a caller asked for:
// tool name, query text, and filters. Two intents with the same semantic
// content must resolve to the same cache key regardless of field or
// source ordering; canonicalization lives in the intent cache.
type SearchIntent struct {
	Tool        string
	Query       string
	MinQuality  int
	Sources     []string
	RequireCode *bool // Nullable - nil means "don't care"
}

// Validate checks if the intent is usable as a cache key
func (si *SearchIntent) Validate() error {
	if si.Tool == "" {
		return ErrMissingTool
	}
	if si.Query == "" {
		return ErrEmptyQuery
	}
	if si.MinQuality < 0 || si.MinQuality > 100 {
		return ErrInvalidMinQuality
	}
	return nil
}
