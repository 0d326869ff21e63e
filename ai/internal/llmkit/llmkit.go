// Package llmkit adapts langchaingo clients to the ai capability interfaces.
// Provider packages build the client and hand it here.
package llmkit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docrag/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

// Embedder implements ai.Embedder on top of a langchaingo embedder.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// NewEmbedder wraps client in a langchaingo embedder that strips newlines.
func NewEmbedder(client embeddings.EmbedderClient, logger *slog.Logger) (*Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder: embedder,
		logger:   logger,
	}, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string, role ai.Role) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts), "role", role)

	var (
		vectors [][]float32
		err     error
	)
	if role == ai.RoleQuery && len(texts) == 1 {
		var v []float32
		v, err = e.embedder.EmbedQuery(ctx, texts[0])
		vectors = [][]float32{v}
	} else {
		vectors, err = e.embedder.EmbedDocuments(ctx, texts)
	}
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	if len(vectors) != len(texts) {
		e.logger.Warn("embedder returned unexpected result count", "want", len(texts), "got", len(vectors))
		return nil, fmt.Errorf("%w: want %d, got %d", ai.ErrResultCount, len(texts), len(vectors))
	}

	return vectors, nil
}

// Completer implements ai.Completer on top of a langchaingo chat model.
type Completer struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewCompleter wraps a langchaingo model with fixed sampling settings.
func NewCompleter(client llms.Model, temperature float64, maxTokens int, logger *slog.Logger) *Completer {
	return &Completer{
		client:      client,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Complete sends prompt as a single human message and returns the first choice.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	c.logger.Debug("generating completion", "prompt_length", len(prompt))
	response, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return "", ai.ErrEmptyResponse
	}

	answer := strings.TrimSpace(response.Choices[0].Content)
	if answer == "" {
		return "", ai.ErrEmptyResponse
	}
	return answer, nil
}
