package types

import (
	"strings"
	"time"
)

// Pattern is a single content document aggregated from a source feed.
// A Pattern is immutable once produced for a fetch cycle; a later cycle
// may produce a new Pattern with the same ID but different fields.
type Pattern struct {
	// Identification
	ID    string
	Title string
	URL   string

	// Content
	PublishDate time.Time
	Excerpt     string
	Content     string
	Topics      []string

	// Quality
	RelevanceScore int // Static quality score, 0-100
	HasCode        bool
}

// Validate checks if the pattern is well formed
func (p *Pattern) Validate() error {
	if p.ID == "" {
		return ErrMissingPatternID
	}
	if p.Title == "" {
		return ErrMissingTitle
	}
	if p.RelevanceScore < 0 || p.RelevanceScore > 100 {
		return ErrInvalidRelevanceScore
	}
	return nil
}

// EmbeddingText returns the text used for semantic indexing: title plus
// excerpt, falling back to a prefix of the body when the excerpt is empty.
func (p *Pattern) EmbeddingText() string {
	text := p.Excerpt
	if text == "" {
		text = p.Content
		if len(text) > 500 {
			text = text[:500]
		}
	}
	return strings.TrimSpace(p.Title + "\n" + text)
}

// HasTopic reports whether the pattern carries the given topic tag
// (case-insensitive).
func (p *Pattern) HasTopic(topic string) bool {
	for _, t := range p.Topics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}
