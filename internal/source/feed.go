package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/patternlens/patternlens/pkg/types"
)

const (
	// excerptLimit caps mapped excerpts
	excerptLimit = 300

	// defaultWeight is the static quality baseline for a feed without
	// an explicit weight
	defaultWeight = 50
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// FeedSource aggregates patterns from one RSS/Atom feed
type FeedSource struct {
	name   string
	url    string
	weight int // Base relevance score for items from this feed
	parser *gofeed.Parser
	now    func() time.Time
}

// NewFeedSource creates a feed source. weight is the static quality
// baseline (0-100) assigned to the feed's items before recency bonuses.
func NewFeedSource(name, url string, weight int) *FeedSource {
	if weight <= 0 || weight > 100 {
		weight = defaultWeight
	}
	return &FeedSource{
		name:   name,
		url:    url,
		weight: weight,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

func (s *FeedSource) Name() string {
	return s.name
}

// FetchPatterns downloads and maps the feed's current items
func (s *FeedSource) FetchPatterns(ctx context.Context) ([]types.Pattern, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, s.name, err)
	}

	patterns := make([]types.Pattern, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		patterns = append(patterns, s.mapItem(item))
	}
	return patterns, nil
}

// SearchPatterns fetches the feed and applies the source's own coarse
// substring filter. Real ranking happens upstream.
func (s *FeedSource) SearchPatterns(ctx context.Context, query string) ([]types.Pattern, error) {
	patterns, err := s.FetchPatterns(ctx)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return patterns, nil
	}

	matched := patterns[:0]
	for _, p := range patterns {
		haystack := strings.ToLower(p.Title + " " + p.Excerpt + " " + strings.Join(p.Topics, " "))
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched, nil
}

func (s *FeedSource) mapItem(item *gofeed.Item) types.Pattern {
	published := s.now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	topics := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			topics = append(topics, c)
		}
	}

	return types.Pattern{
		ID:             s.itemID(item),
		Title:          strings.TrimSpace(item.Title),
		URL:            item.Link,
		PublishDate:    published,
		Excerpt:        excerpt(item.Description),
		Content:        content,
		Topics:         topics,
		RelevanceScore: s.scoreItem(published),
		HasCode:        sniffCode(content),
	}
}

// itemID derives a stable id from the item's GUID (or link as a
// fallback), namespaced by source
func (s *FeedSource) itemID(item *gofeed.Item) string {
	ref := item.GUID
	if ref == "" {
		ref = item.Link
	}
	sum := sha256.Sum256([]byte(ref))
	return s.name + "/" + hex.EncodeToString(sum[:8])
}

// scoreItem blends the feed's base weight with a recency bonus
func (s *FeedSource) scoreItem(published time.Time) int {
	score := s.weight
	switch age := s.now().Sub(published); {
	case age < 7*24*time.Hour:
		score += 20
	case age < 30*24*time.Hour:
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// excerpt strips markup and truncates description text
func excerpt(description string) string {
	text := strings.TrimSpace(tagPattern.ReplaceAllString(description, " "))
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > excerptLimit {
		text = text[:excerptLimit]
	}
	return text
}

// sniffCode reports whether the content appears to include code samples
func sniffCode(content string) bool {
	return strings.Contains(content, "<code") ||
		strings.Contains(content, "<pre") ||
		strings.Contains(content, "```")
}
