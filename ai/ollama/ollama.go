// Package ollama provides AI service implementations using the native Ollama API.
package ollama

import (
	"log/slog"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/internal/llmkit"
	"github.com/tmc/langchaingo/llms/ollama"
)

// NewEmbedder creates an embedder that calls Ollama's embedding endpoint.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := ollama.New(
		ollama.WithServerURL(config.EmbeddingHost),
		ollama.WithModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	return llmkit.NewEmbedder(client, slog.Default().With("component", "ollama-embedder"))
}

// NewCompleter creates an answer synthesis service backed by Ollama's chat endpoint.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := ollama.New(
		ollama.WithServerURL(config.LLMHost),
		ollama.WithModel(config.LLMModel),
	)
	if err != nil {
		return nil, err
	}

	return llmkit.NewCompleter(client, config.Temperature, config.MaxTokens,
		slog.Default().With("component", "ollama-completer")), nil
}
