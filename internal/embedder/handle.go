package embedder

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Handle is a shared, lazily-initialized embedder. Concurrent first-time
// users coalesce into a single initialization through the same
// single-flight primitive the caches use; a failed initialization is
// not sticky and the next call retries the factory.
type Handle struct {
	mu      sync.RWMutex
	group   singleflight.Group
	embed   Embedder
	factory func() (Embedder, error)
}

// NewHandle creates a handle around factory. The factory runs at most
// once per successful initialization, on first use.
func NewHandle(factory func() (Embedder, error)) *Handle {
	return &Handle{factory: factory}
}

// Get returns the shared embedder, initializing it on first use
func (h *Handle) Get(ctx context.Context) (Embedder, error) {
	h.mu.RLock()
	emb := h.embed
	h.mu.RUnlock()
	if emb != nil {
		return emb, nil
	}

	v, err, _ := h.group.Do("init", func() (interface{}, error) {
		h.mu.RLock()
		existing := h.embed
		h.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		emb, err := h.factory()
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.embed = emb
		h.mu.Unlock()
		return emb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Embedder), nil
}

// Embed resolves the shared embedder and embeds text with it, so the
// handle satisfies the pipeline's Embedder contract directly
func (h *Handle) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return emb.Embed(ctx, text)
}

// Close releases the underlying embedder if it was initialized
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.embed == nil {
		return nil
	}
	err := h.embed.Close()
	h.embed = nil
	return err
}
