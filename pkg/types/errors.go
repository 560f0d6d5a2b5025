package types

import "errors"

// Domain errors for type validation
var (
	// Pattern errors
	ErrMissingPatternID      = errors.New("pattern ID is required")
	ErrMissingTitle          = errors.New("pattern title is required")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 100")

	// Intent errors
	ErrMissingTool       = errors.New("tool name is required")
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrInvalidMinQuality = errors.New("min quality must be between 0 and 100")
)
