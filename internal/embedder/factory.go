package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider     = "PATTERNLENS_EMBEDDING_PROVIDER"
	EnvModel        = "PATTERNLENS_EMBEDDING_MODEL"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOpenAIBase   = "OPENAI_BASE_URL"
	EnvJinaAPIKey   = "JINA_API_KEY"
)

// Config holds explicit embedder configuration
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cfg.Model)
	case ProviderLocal:
		return NewLocalProvider()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. PATTERNLENS_EMBEDDING_PROVIDER (openai, jina, local)
//  2. Available API keys: OPENAI_API_KEY, then JINA_API_KEY
//  3. The local provider when no keys are found
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider: DetectProvider(),
		APIKey:   detectAPIKey(),
		BaseURL:  os.Getenv(EnvOpenAIBase),
		Model:    os.Getenv(EnvModel),
	})
}

// DetectProvider returns the provider NewFromEnv would pick
func DetectProvider() string {
	if p := os.Getenv(EnvProvider); p != "" {
		return strings.ToLower(p)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	return ProviderLocal
}

func detectAPIKey() string {
	switch DetectProvider() {
	case ProviderOpenAI:
		return os.Getenv(EnvOpenAIAPIKey)
	case ProviderJina:
		return os.Getenv(EnvJinaAPIKey)
	}
	return ""
}
