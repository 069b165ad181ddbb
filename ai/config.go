package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for inference backends.
type Config struct {
	// Host is the base URL for the OpenAI-compatible inference API.
	// Example: "http://localhost:11434/v1" for a local Ollama server.
	Host string

	// Model is the model identifier used for span extraction.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	Model string

	// EmbeddingModel is the model identifier used for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// Labels is the closed set of entity labels the extractor looks for.
	Labels []string

	// UnitBudget is the largest input, in model units, a single extraction
	// call accepts. Longer documents are chunked upstream.
	UnitBudget int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the inference service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the extraction model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithLabels sets the entity labels the extractor looks for.
func WithLabels(labels ...string) ConfigOption {
	return func(c *Config) {
		c.Labels = labels
	}
}

// WithUnitBudget sets the extractor's input budget.
func WithUnitBudget(budget int) ConfigOption {
	return func(c *Config) {
		c.UnitBudget = budget
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		Host:           "http://localhost:11434/v1",
		Model:          "qwen2.5:3b",
		EmbeddingModel: "embeddinggemma",
		Labels:         []string{"PERSON", "ORGANIZATION", "LOCATION", "DATE"},
		UnitBudget:     450,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form. It adds the
// /v1 suffix to the host if missing, which is required by most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if len(c.Labels) == 0 {
		return errors.New("ai config: at least one label is required")
	}
	if c.UnitBudget <= 0 {
		return errors.New("ai config: UnitBudget must be positive")
	}
	return nil
}
