package openai

import (
	"log/slog"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/internal/llmkit"
	"github.com/tmc/langchaingo/llms/openai"
)

// token returns the API key, or "none" for local OpenAI-compatible services
// that don't require authentication.
func token(key string) string {
	if key == "" {
		return "none"
	}
	return key
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for embeddings
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token(config.EmbeddingAPIKey)),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	return llmkit.NewEmbedder(client, slog.Default().With("component", "openai-embedder"))
}
