package openai

import (
	"log/slog"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/internal/llmkit"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewCompleter creates an answer synthesis service backed by an
// OpenAI-compatible chat completion API.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.LLMHost),
		openai.WithToken(token(config.LLMAPIKey)),
		openai.WithModel(config.LLMModel),
	)
	if err != nil {
		return nil, err
	}

	return llmkit.NewCompleter(client, config.Temperature, config.MaxTokens,
		slog.Default().With("component", "openai-completer")), nil
}
