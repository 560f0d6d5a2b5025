package mcp

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/patternlens/patternlens/internal/config"
	"github.com/patternlens/patternlens/internal/embedder"
	"github.com/patternlens/patternlens/internal/fetchcache"
	"github.com/patternlens/patternlens/internal/intentcache"
	"github.com/patternlens/patternlens/internal/orchestrator"
	"github.com/patternlens/patternlens/internal/patternstore"
	"github.com/patternlens/patternlens/internal/semantic"
	"github.com/patternlens/patternlens/internal/source"
	"github.com/patternlens/patternlens/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "patternlens"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	pipeline *orchestrator.Orchestrator
	fetches  *fetchcache.Cache[[]types.Pattern]
	intents  *intentcache.Cache
	embedder *embedder.Handle
	store    *patternstore.Store
}

// NewServer creates a server from the given config. cacheDir "" means
// the default XDG cache location.
func NewServer(cfg *config.Config, cacheDir string) (*Server, error) {
	if cacheDir == "" {
		cacheDir = config.CacheDir()
	}

	fetches, err := fetchcache.New[[]types.Pattern](fetchcache.Options{
		Dir: filepath.Join(cacheDir, "fetch"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch cache: %w", err)
	}

	vectors, err := fetchcache.New[[]float32](fetchcache.Options{
		Dir: filepath.Join(cacheDir, "vectors"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vector cache: %w", err)
	}

	intents, err := intentcache.New(intentcache.Options{
		TTL: cfg.IntentTTLDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create intent cache: %w", err)
	}

	// Provider construction is deferred until the first embedding is
	// needed, so a misconfigured provider surfaces per-query instead of
	// refusing to start.
	handle := embedder.NewHandle(embedder.NewFromEnv)
	sem := semantic.NewIndex(handle, vectors, semantic.Config{})

	store, err := patternstore.Open(filepath.Join(cacheDir, "catalog.db"))
	if err != nil {
		// The catalog only enables warm starts; run without it.
		log.Printf("pattern catalog unavailable, continuing without it: %v", err)
		store = nil
	}

	var sources []source.Source
	for _, s := range cfg.EnabledSources() {
		sources = append(sources, source.NewFeedSource(s.Name, s.URL, s.Weight))
	}

	pipeline, err := orchestrator.New(sources, fetches, intents, sem, store, orchestrator.Config{
		FetchTTL:        cfg.RefreshDuration(),
		MinLexicalScore: cfg.MinLexicalScore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		pipeline: pipeline,
		fetches:  fetches,
		intents:  intents,
		embedder: handle,
		store:    store,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.close()
	return server.ServeStdio(s.mcp)
}

func (s *Server) close() {
	if err := s.embedder.Close(); err != nil {
		log.Printf("embedder close: %v", err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("catalog close: %v", err)
		}
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchPatternsTool(), s.handleSearchPatterns)
	s.mcp.AddTool(getCacheStatsTool(), s.handleGetCacheStats)
	s.mcp.AddTool(clearCacheTool(), s.handleClearCache)
}
