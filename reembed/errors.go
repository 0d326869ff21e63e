package reembed

import "errors"

var (
	// ErrSourceRequired is returned when no source collection is provided.
	ErrSourceRequired = errors.New("source collection required")

	// ErrTargetRequired is returned when no target collection is provided.
	ErrTargetRequired = errors.New("target collection required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
