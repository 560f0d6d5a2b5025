// Package mcp implements the Model Context Protocol (MCP) server for
// patternlens.
//
// The MCP server exposes three tools to AI coding assistants:
//   - search_patterns: Search the aggregated pattern catalog
//   - get_cache_stats: Report intent cache hit/miss telemetry
//   - clear_cache: Empty the intent and fetch caches
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Tool: search_patterns
//
// Search the aggregated catalog:
//
//	Request:
//	{
//	  "name": "search_patterns",
//	  "arguments": {
//	    "query": "navigation stack",
//	    "min_quality": 40,
//	    "sources": ["sundell"],
//	    "require_code": true,
//	    "limit": 10
//	  }
//	}
//
// All arguments except query are optional. An omitted sources list
// means every configured source; an omitted require_code means no code
// filter at all. Repeated identical calls are served from the intent
// cache until its TTL expires or the configured source set changes.
//
// # Tool: get_cache_stats
//
// Returns hit/miss counters and the hit rate for the intent cache,
// plus entry counts for each caching layer. Takes no arguments.
//
// # Tool: clear_cache
//
// Empties the intent cache and the source fetch cache and resets the
// telemetry counters. Takes no arguments.
package mcp
