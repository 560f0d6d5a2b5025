package embedder

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported provider")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
)

// Embedder generates fixed-length float vectors for texts
type Embedder interface {
	// Embed generates a single embedding for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Close releases any resources held by the embedder
	Close() error
}

// validateTexts rejects empty inputs before they reach a provider
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return ErrEmptyText
	}
	for i, t := range texts {
		if t == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}
	if len(texts) > MaxBatchSize {
		return fmt.Errorf("%w: max %d texts", ErrBatchTooLarge, MaxBatchSize)
	}
	return nil
}
