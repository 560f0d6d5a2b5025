package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterministic(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)

	a1, err := p.Embed(context.Background(), "swiftui navigation")
	require.NoError(t, err)
	a2, err := p.Embed(context.Background(), "swiftui navigation")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "a completely different text")
	require.NoError(t, err)

	assert.Equal(t, a1, a2, "same text must produce the same vector")
	assert.NotEqual(t, a1, b)
	assert.Len(t, a1, LocalDimension)
	assert.Equal(t, LocalDimension, p.Dimension())
}

func TestLocalProviderRejectsEmptyText(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = p.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = p.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProviderBatch(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)

	vectors, err := p.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	single, err := p.Embed(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, single, vectors[1], "batch and single embedding must agree")
}

func TestBatchSizeLimit(t *testing.T) {
	p, err := NewLocalProvider()
	require.NoError(t, err)

	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "text"
	}
	_, err = p.EmbedBatch(context.Background(), texts)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "acme"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestNewRequiresAPIKeys(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = New(Config{Provider: ProviderJina})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestDetectProviderPriority(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvJinaAPIKey, "")
	assert.Equal(t, ProviderLocal, DetectProvider())

	t.Setenv(EnvJinaAPIKey, "jk")
	assert.Equal(t, ProviderJina, DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "ok")
	assert.Equal(t, ProviderOpenAI, DetectProvider(), "OpenAI key outranks Jina key")

	t.Setenv(EnvProvider, "LOCAL")
	assert.Equal(t, ProviderLocal, DetectProvider(), "explicit provider outranks keys")
}
