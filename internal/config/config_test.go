package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.RefreshDuration())
	assert.Equal(t, time.Hour, cfg.IntentTTLDuration())
	assert.NotEmpty(t, cfg.EnabledSources())

	// First run writes the defaults out for editing.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
refresh_interval: 5m
intent_ttl: 30m
min_lexical_score: 50
sources:
  - name: blog
    url: https://example.com/feed.xml
    weight: 60
    enabled: true
  - name: disabled
    url: https://example.com/other.xml
    enabled: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.RefreshDuration())
	assert.Equal(t, 30*time.Minute, cfg.IntentTTLDuration())
	assert.Equal(t, 50, cfg.MinLexicalScore)

	enabled := cfg.EnabledSources()
	require.Len(t, enabled, 1)
	assert.Equal(t, "blog", enabled[0].Name)
	assert.Equal(t, 60, enabled[0].Weight)
}

func TestLoadRejectsBadSources(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing name",
			yaml: "sources:\n  - url: https://example.com/feed.xml\n    enabled: true\n",
		},
		{
			name: "duplicate name",
			yaml: "sources:\n  - name: a\n    url: https://example.com/1.xml\n  - name: a\n    url: https://example.com/2.xml\n",
		},
		{
			name: "invalid url",
			yaml: "sources:\n  - name: a\n    url: not-a-url\n",
		},
		{
			name: "weight out of range",
			yaml: "sources:\n  - name: a\n    url: https://example.com/feed.xml\n    weight: 150\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{RefreshInterval: "garbage", IntentTTL: ""}
	assert.Equal(t, 15*time.Minute, cfg.RefreshDuration())
	assert.Equal(t, time.Hour, cfg.IntentTTLDuration())
}
