package embedding

import (
	"errors"
	"fmt"

	"github.com/poiesic/docrag/core"
)

var (
	// ErrEmbedderRequired is returned when no ai.Embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidMaxAttempts is returned when retry is configured with no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrDimensionMismatch is returned when the provider returns a vector of
	// the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Error reports which inputs of an Embed call could not be embedded.
// It matches core.ErrEmbeddingProvider with errors.Is.
type Error struct {
	// Failed holds the input indices without a vector, in ascending order.
	Failed []int
	// Err joins the per-batch causes.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d texts failed: %v", core.ErrEmbeddingProvider, len(e.Failed), e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{core.ErrEmbeddingProvider, e.Err}
}
