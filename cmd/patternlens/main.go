package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patternlens/patternlens/internal/config"
	"github.com/patternlens/patternlens/internal/embedder"
	"github.com/patternlens/patternlens/internal/mcp"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("patternlens MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Embedding Provider: %s\n", embedder.DetectProvider())
		os.Exit(0)
	}

	// Log startup info to stderr (stdout reserved for MCP protocol)
	log.SetOutput(os.Stderr)
	log.Printf("patternlens MCP Server v%s starting...", version)

	cfg, err := config.Load(os.Getenv("PATTERNLENS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Sources: %d enabled, refresh interval %s, embedding provider %s",
		len(cfg.EnabledSources()), cfg.RefreshDuration(), embedder.DetectProvider())

	server, err := mcp.NewServer(cfg, os.Getenv("PATTERNLENS_CACHE_DIR"))
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}
