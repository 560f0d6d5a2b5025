package embedder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCoalescesInitialization(t *testing.T) {
	var inits atomic.Int32
	release := make(chan struct{})
	h := NewHandle(func() (Embedder, error) {
		inits.Add(1)
		<-release
		return NewLocalProvider()
	})

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.Get(context.Background())
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), inits.Load(), "concurrent first-time initializers must coalesce")
	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestHandleRetriesAfterFailedInit(t *testing.T) {
	var inits atomic.Int32
	fail := true
	boom := errors.New("cannot initialize")
	h := NewHandle(func() (Embedder, error) {
		inits.Add(1)
		if fail {
			return nil, boom
		}
		return NewLocalProvider()
	})

	_, err := h.Get(context.Background())
	assert.ErrorIs(t, err, boom)

	fail = false
	emb, err := h.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, emb)
	assert.Equal(t, int32(2), inits.Load(), "failed init must not be sticky")

	// Subsequent calls reuse the initialized embedder
	_, err = h.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), inits.Load())
}

func TestHandleEmbedDelegates(t *testing.T) {
	h := NewHandle(func() (Embedder, error) { return NewLocalProvider() })

	vec, err := h.Embed(context.Background(), "swiftui")
	require.NoError(t, err)
	assert.Len(t, vec, LocalDimension)
	require.NoError(t, h.Close())
}
