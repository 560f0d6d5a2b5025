package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternlens/patternlens/internal/config"
	"github.com/patternlens/patternlens/internal/embedder"
	"github.com/patternlens/patternlens/internal/fetchcache"
	"github.com/patternlens/patternlens/internal/intentcache"
	"github.com/patternlens/patternlens/internal/orchestrator"
	"github.com/patternlens/patternlens/internal/source"
	"github.com/patternlens/patternlens/pkg/types"
)

type staticSource struct {
	name     string
	patterns []types.Pattern
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) FetchPatterns(_ context.Context) ([]types.Pattern, error) {
	return s.patterns, nil
}

func (s *staticSource) SearchPatterns(_ context.Context, _ string) ([]types.Pattern, error) {
	return s.patterns, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	fetches, err := fetchcache.New[[]types.Pattern](fetchcache.Options{})
	require.NoError(t, err)
	intents, err := intentcache.New(intentcache.Options{})
	require.NoError(t, err)

	blog := &staticSource{name: "blog", patterns: []types.Pattern{
		{
			ID:             "blog/nav",
			Title:          "Navigation Stacks in SwiftUI",
			URL:            "https://example.com/nav",
			PublishDate:    time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			Excerpt:        "Programmatic navigation with value types.",
			Topics:         []string{"swiftui"},
			RelevanceScore: 82,
			HasCode:        true,
		},
		{
			ID:             "blog/anim",
			Title:          "Spring Animations",
			URL:            "https://example.com/anim",
			PublishDate:    time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC),
			RelevanceScore: 60,
		},
	}}

	pipeline, err := orchestrator.New([]source.Source{blog}, fetches, intents, nil, nil, orchestrator.Config{})
	require.NoError(t, err)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		pipeline: pipeline,
		fetches:  fetches,
		intents:  intents,
		embedder: embedder.NewHandle(embedder.NewFromEnv),
	}
	s.registerTools()
	return s
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) map[string]interface{} {
	t.Helper()

	var req mcp.CallToolRequest
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &parsed))
	return parsed
}

func TestHandleSearchPatterns(t *testing.T) {
	s := newTestServer(t)

	response := callTool(t, s.handleSearchPatterns, map[string]interface{}{
		"query": "navigation",
	})

	assert.Equal(t, "navigation", response["query"])
	assert.Equal(t, float64(1), response["total_count"])

	results, ok := response["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)

	hit := results[0].(map[string]interface{})
	assert.Equal(t, "blog/nav", hit["id"])
	assert.Equal(t, "Navigation Stacks in SwiftUI", hit["title"])
	assert.Equal(t, float64(1), hit["rank"])
	assert.Equal(t, true, hit["has_code"])
}

func TestHandleSearchPatternsValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{name: "missing query", args: map[string]interface{}{}, code: ErrorCodeEmptyQuery},
		{name: "empty query", args: map[string]interface{}{"query": ""}, code: ErrorCodeEmptyQuery},
		{name: "bad min_quality", args: map[string]interface{}{"query": "x", "min_quality": float64(400)}, code: ErrorCodeInvalidParams},
		{name: "bad limit", args: map[string]interface{}{"query": "x", "limit": float64(0)}, code: ErrorCodeInvalidParams},
		{name: "bad sources type", args: map[string]interface{}{"query": "x", "sources": "blog"}, code: ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req mcp.CallToolRequest
			req.Params.Arguments = tt.args

			_, err := s.handleSearchPatterns(context.Background(), req)
			require.Error(t, err)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestHandleSearchPatternsRequireCode(t *testing.T) {
	s := newTestServer(t)

	response := callTool(t, s.handleSearchPatterns, map[string]interface{}{
		"query":        "animations",
		"require_code": true,
	})
	assert.Equal(t, float64(0), response["total_count"])

	response = callTool(t, s.handleSearchPatterns, map[string]interface{}{
		"query":        "animations",
		"require_code": false,
	})
	assert.Equal(t, float64(1), response["total_count"])
}

func TestHandleGetCacheStats(t *testing.T) {
	s := newTestServer(t)

	callTool(t, s.handleSearchPatterns, map[string]interface{}{"query": "navigation"})
	callTool(t, s.handleSearchPatterns, map[string]interface{}{"query": "navigation"})

	response := callTool(t, s.handleGetCacheStats, nil)

	intentStats, ok := response["intent_cache"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), intentStats["hits"])
	assert.Equal(t, float64(1), intentStats["misses"])
	assert.Equal(t, "0.50", intentStats["hit_rate"])
	assert.Equal(t, float64(1), intentStats["entries"])
}

func TestHandleClearCache(t *testing.T) {
	s := newTestServer(t)

	callTool(t, s.handleSearchPatterns, map[string]interface{}{"query": "navigation"})
	require.Equal(t, 1, s.intents.Len())

	response := callTool(t, s.handleClearCache, nil)
	assert.Equal(t, true, response["cleared"])
	assert.Equal(t, 0, s.intents.Len())
	assert.Equal(t, 0, s.fetches.Len())
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		RefreshInterval: "15m",
		IntentTTL:       "1h",
		Sources: []config.Source{
			{Name: "blog", URL: "https://example.com/feed.xml", Weight: 60, Enabled: true},
		},
	}

	s, err := NewServer(cfg, t.TempDir())
	require.NoError(t, err)
	defer s.close()

	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.pipeline)
	assert.NotNil(t, s.embedder)
	assert.NotNil(t, s.store)
}

func TestNewServerNoEnabledSources(t *testing.T) {
	cfg := &config.Config{
		Sources: []config.Source{
			{Name: "blog", URL: "https://example.com/feed.xml", Enabled: false},
		},
	}

	_, err := NewServer(cfg, t.TempDir())
	require.Error(t, err)
}
