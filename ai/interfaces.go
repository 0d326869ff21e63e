package ai

import "context"

// Role tells an Embedder what the text will be used for. Some models embed
// queries and documents differently.
type Role int

const (
	// RoleDocument marks text that will be stored and searched against.
	RoleDocument Role = iota
	// RoleQuery marks text that will be used as a search query.
	RoleQuery
)

func (r Role) String() string {
	switch r {
	case RoleDocument:
		return "document"
	case RoleQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedTexts generates vector embeddings for multiple text strings in one
	// request to the provider.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string, role Role) ([][]float32, error)
}

// Completer generates a free-text answer for a prompt.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends prompt to the language model and returns its answer.
	Complete(ctx context.Context, prompt string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the answer synthesis service, or nil when no
	// language model is configured.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
