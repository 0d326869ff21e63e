package ai

import (
	"testing"

	"github.com/poiesic/docrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOpenAI, cfg.EmbeddingProvider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLMHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, 768, cfg.EmbeddingDimensions)
	assert.Equal(t, "qwen2.5:3b", cfg.LLMModel)
	assert.True(t, cfg.LLMEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, 1024, cfg.MaxTokens)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.LLMHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithLLMHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.LLMHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingProvider(ProviderOllama),
			WithEmbeddingModel("mxbai-embed-large"),
			WithEmbeddingDimensions(1024),
			WithLLMProvider(ProviderNone),
			WithLLMModel("llama3"),
			WithTemperature(0.7),
			WithMaxTokens(256),
			WithAPIKey("secret"),
		)

		assert.Equal(t, ProviderOllama, cfg.EmbeddingProvider)
		assert.Equal(t, "mxbai-embed-large", cfg.EmbeddingModel)
		assert.Equal(t, 1024, cfg.EmbeddingDimensions)
		assert.False(t, cfg.LLMEnabled())
		assert.Equal(t, "llama3", cfg.LLMModel)
		assert.Equal(t, 0.7, cfg.Temperature)
		assert.Equal(t, 256, cfg.MaxTokens)
		assert.Equal(t, "secret", cfg.EmbeddingAPIKey)
		assert.Equal(t, "secret", cfg.LLMAPIKey)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		host     string
		want     string
	}{
		{"openai adds v1", ProviderOpenAI, "http://localhost:11434", "http://localhost:11434/v1"},
		{"openai trailing slash", ProviderOpenAI, "http://localhost:11434/", "http://localhost:11434/v1"},
		{"openai keeps v1", ProviderOpenAI, "https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"ollama strips v1", ProviderOllama, "http://localhost:11434/v1", "http://localhost:11434"},
		{"ollama plain", ProviderOllama, "http://localhost:11434", "http://localhost:11434"},
		{"empty host", ProviderOpenAI, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingProvider: tt.provider, EmbeddingHost: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}

	t.Run("provider names are lowercased", func(t *testing.T) {
		cfg := &Config{EmbeddingProvider: " OpenAI ", LLMProvider: "NONE"}
		cfg.Normalize()
		assert.Equal(t, ProviderOpenAI, cfg.EmbeddingProvider)
		assert.Equal(t, ProviderNone, cfg.LLMProvider)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown embedding provider", func(c *Config) { c.EmbeddingProvider = "bogus" }, true},
		{"none embedding provider", func(c *Config) { c.EmbeddingProvider = ProviderNone }, true},
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, true},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, true},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }, true},
		{"llm disabled skips llm checks", func(c *Config) {
			c.LLMProvider = ProviderNone
			c.LLMModel = ""
			c.MaxTokens = 0
		}, false},
		{"unknown llm provider", func(c *Config) { c.LLMProvider = "bogus" }, true},
		{"missing llm model", func(c *Config) { c.LLMModel = "" }, true},
		{"temperature out of range", func(c *Config) { c.Temperature = 3 }, true},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
		})
	}
}
