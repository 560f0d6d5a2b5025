package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchPatternsTool returns the tool definition for search_patterns
func searchPatternsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_patterns",
		Description: "Search the aggregated content catalog with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"min_quality": map[string]interface{}{
					"type":        "integer",
					"description": "Drop documents with a static quality score below this (0-100)",
					"default":     0,
					"minimum":     0,
					"maximum":     100,
				},
				"sources": map[string]interface{}{
					"type":        "array",
					"description": "Restrict the search to these source names; omit for all configured sources",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"require_code": map[string]interface{}{
					"type":        "boolean",
					"description": "If set, only return documents that do (true) or do not (false) contain code snippets",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getCacheStatsTool returns the tool definition for get_cache_stats
func getCacheStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_cache_stats",
		Description: "Report hit/miss telemetry for the query result cache and entry counts per caching layer",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// clearCacheTool returns the tool definition for clear_cache
func clearCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_cache",
		Description: "Empty the query result cache and the source fetch cache",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
