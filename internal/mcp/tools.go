package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/patternlens/patternlens/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
	ErrorCodeUnknownSource = -32002 // Requested source is not configured
)

// handleSearchPatterns handles the search_patterns tool invocation
func (s *Server) handleSearchPatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	minQuality := getIntDefault(args, "min_quality", 0)
	if minQuality < 0 || minQuality > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_quality must be between 0 and 100", map[string]interface{}{
			"param": "min_quality",
			"value": minQuality,
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	sources, err := getStringSlice(args, "sources")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "sources must be an array of strings", map[string]interface{}{
			"param":  "sources",
			"reason": err.Error(),
		})
	}

	intent := types.SearchIntent{
		Tool:       "search_patterns",
		Query:      query,
		MinQuality: minQuality,
		Sources:    sources,
	}
	if val, ok := args["require_code"].(bool); ok {
		intent.RequireCode = &val
	}

	result, err := s.pipeline.Resolve(ctx, intent)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// The cached result holds the full hit set; the limit is a
	// presentation concern and never part of the cache key.
	patterns := result.Patterns
	if len(patterns) > limit {
		patterns = patterns[:limit]
	}

	hits := make([]map[string]interface{}, 0, len(patterns))
	for i, p := range patterns {
		hits = append(hits, map[string]interface{}{
			"rank":         i + 1,
			"id":           p.ID,
			"title":        p.Title,
			"url":          p.URL,
			"excerpt":      p.Excerpt,
			"topics":       p.Topics,
			"score":        result.Scores[p.ID],
			"has_code":     p.HasCode,
			"publish_date": p.PublishDate.Format(time.RFC3339),
		})
	}

	response := map[string]interface{}{
		"query":       query,
		"results":     hits,
		"total_count": result.TotalCount,
		"resolved_at": result.Timestamp.Format(time.RFC3339),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCacheStats handles the get_cache_stats tool invocation
func (s *Server) handleGetCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.pipeline.Stats()

	response := map[string]interface{}{
		"intent_cache": map[string]interface{}{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"hit_rate": fmt.Sprintf("%.2f", stats.HitRate),
			"entries":  s.intents.Len(),
		},
		"fetch_cache": map[string]interface{}{
			"entries": s.fetches.Len(),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearCache handles the clear_cache tool invocation
func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.pipeline.ClearCaches(); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "clearing caches failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"cleared": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an optional string-array parameter
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string element, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
