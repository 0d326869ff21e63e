// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docrag/core"
)

// Supported provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	// ProviderNone disables the language model. Not valid for embeddings.
	ProviderNone = "none"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingProvider selects the embedding implementation: "openai" or "ollama".
	// The openai provider also serves any OpenAI-compatible server.
	EmbeddingProvider string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingAPIKey is sent as the bearer token. Local servers ignore it.
	EmbeddingAPIKey string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingDimensions is the vector length every embedding must have.
	EmbeddingDimensions int

	// LLMProvider selects the answer synthesis implementation:
	// "openai", "ollama" or "none".
	LLMProvider string

	// LLMHost is the base URL for the language model API.
	LLMHost string

	// LLMAPIKey is sent as the bearer token. Local servers ignore it.
	LLMAPIKey string

	// LLMModel is the model identifier used for answer synthesis.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	LLMModel string

	// Temperature is the sampling temperature for answer synthesis.
	// Default: 0.1
	Temperature float64

	// MaxTokens caps the length of a synthesized answer.
	// Default: 1024
	MaxTokens int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingProvider sets the embedding provider name.
func WithEmbeddingProvider(name string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingProvider = name
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithLLMHost sets the language model host URL.
func WithLLMHost(host string) ConfigOption {
	return func(c *Config) {
		c.LLMHost = host
	}
}

// WithHost sets both embedding and language model hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.LLMHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingDimensions sets the expected embedding vector length.
func WithEmbeddingDimensions(dim int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimensions = dim
	}
}

// WithLLMProvider sets the language model provider name.
func WithLLMProvider(name string) ConfigOption {
	return func(c *Config) {
		c.LLMProvider = name
	}
}

// WithLLMModel sets the language model identifier.
func WithLLMModel(model string) ConfigOption {
	return func(c *Config) {
		c.LLMModel = model
	}
}

// WithTemperature sets the synthesis sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the synthesis answer length cap.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithAPIKey sets the same API key for both services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPIKey = key
		c.LLMAPIKey = key
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and answer synthesis use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingProvider:   ProviderOpenAI,
		EmbeddingHost:       defaultHost,
		EmbeddingModel:      "nomic-embed-text",
		EmbeddingDimensions: 768,
		LLMProvider:         ProviderOpenAI,
		LLMHost:             defaultHost,
		LLMModel:            "qwen2.5:3b",
		Temperature:         0.1,
		MaxTokens:           1024,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithHost("http://localhost:11434/v1"),
//       WithEmbeddingModel("text-embedding-3-small"),
//       WithEmbeddingDimensions(1536),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LLMEnabled reports whether answer synthesis is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMProvider != "" && c.LLMProvider != ProviderNone
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix, which is required by most
// compatible servers (Ollama, LocalAI, vLLM). Native Ollama hosts lose it.
func (c *Config) Normalize() {
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.EmbeddingHost = normalizeHost(c.EmbeddingProvider, c.EmbeddingHost)
	c.LLMHost = normalizeHost(c.LLMProvider, c.LLMHost)
}

func normalizeHost(provider, host string) string {
	if host == "" {
		return host
	}
	host = strings.TrimSuffix(host, "/")
	switch provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(host, "/v1") {
			host = host + "/v1"
		}
	case ProviderOllama:
		host = strings.TrimSuffix(host, "/v1")
	}
	return host
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	// Normalize first to ensure hosts are in correct format
	c.Normalize()

	switch c.EmbeddingProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return invalid("unknown EmbeddingProvider %q", c.EmbeddingProvider)
	}
	if c.EmbeddingHost == "" {
		return invalid("EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return invalid("EmbeddingModel is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return invalid("EmbeddingDimensions must be positive")
	}

	switch c.LLMProvider {
	case ProviderNone, "":
		return nil
	case ProviderOpenAI, ProviderOllama:
	default:
		return invalid("unknown LLMProvider %q", c.LLMProvider)
	}
	if c.LLMHost == "" {
		return invalid("LLMHost is required")
	}
	if c.LLMModel == "" {
		return invalid("LLMModel is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return invalid("Temperature must be between 0 and 2")
	}
	if c.MaxTokens <= 0 {
		return invalid("MaxTokens must be positive")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: ai config: %s", core.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
