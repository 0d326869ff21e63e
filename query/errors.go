package query

import (
	"errors"
	"fmt"

	"github.com/poiesic/docrag/core"
)

const (
	// MaxResults is the largest accepted NResults.
	MaxResults = 50

	// DefaultResults is used when a request leaves NResults at zero.
	DefaultResults = 5
)

var (
	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when a batch embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyQuery is returned for blank query text.
	ErrEmptyQuery = fmt.Errorf("%w: query cannot be empty", core.ErrInvalidInput)

	// ErrResultCount is returned when NResults is outside [1, MaxResults].
	ErrResultCount = fmt.Errorf("%w: n_results must be between 1 and %d", core.ErrInvalidInput, MaxResults)
)
