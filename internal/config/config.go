// Package config loads the patternlens configuration: which feeds to
// aggregate and how long the caching layers hold results. The file
// lives in the XDG config directory and is created from embedded
// defaults on first run.
package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Source describes one content feed
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Weight  int    `yaml:"weight"` // Static quality baseline, 0-100
	Enabled bool   `yaml:"enabled"`
}

// Config is the full configuration file
type Config struct {
	RefreshInterval string   `yaml:"refresh_interval"`
	IntentTTL       string   `yaml:"intent_ttl"`
	MinLexicalScore int      `yaml:"min_lexical_score,omitempty"`
	Sources         []Source `yaml:"sources"`
}

// RefreshDuration returns how long fetched source documents stay fresh
func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// IntentTTLDuration returns how long resolved query results stay servable
func (c *Config) IntentTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.IntentTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// EnabledSources returns the sources that should be fetched
func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// DefaultConfigPath returns the user config file location
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "patternlens", "config.yaml")
}

// CacheDir returns the directory for the on-disk cache layers
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "patternlens")
}

// CatalogPath returns the sqlite pattern catalog location
func CatalogPath() string {
	return filepath.Join(CacheDir(), "catalog.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path, falling back to embedded defaults when
// the file does not exist. An empty path means the default location; on
// first run the defaults are written there so users have a file to edit.
func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source with URL %q has no name", s.URL)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true

		u, err := url.Parse(s.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("source %q has invalid URL %q", s.Name, s.URL)
		}
		if s.Weight < 0 || s.Weight > 100 {
			return fmt.Errorf("source %q weight must be between 0 and 100", s.Name)
		}
	}
	return nil
}
