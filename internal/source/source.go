// Package source fetches content documents from external feeds and
// maps them into the shared pattern model.
package source

import (
	"context"
	"errors"

	"github.com/patternlens/patternlens/pkg/types"
)

// Common errors
var (
	ErrFeedUnavailable = errors.New("feed unavailable")
)

// Source supplies patterns from one content feed. Each source is
// independently failable; the orchestration layer tolerates partial
// failures across sources.
type Source interface {
	// Name identifies the source in intents and fingerprints
	Name() string

	// FetchPatterns returns the source's current document set
	FetchPatterns(ctx context.Context) ([]types.Pattern, error)

	// SearchPatterns returns documents matching query, using whatever
	// native filtering the source offers
	SearchPatterns(ctx context.Context, query string) ([]types.Pattern, error)
}
