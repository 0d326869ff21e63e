package ingestion

import (
	"errors"
	"fmt"

	"github.com/poiesic/docrag/core"
)

var (
	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrRegistryRequired is returned when a document registry is not provided.
	ErrRegistryRequired = errors.New("document registry required")

	// ErrEmbedderRequired is returned when a batch embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrUnsupportedFileType is returned for files whose extension is not accepted.
	ErrUnsupportedFileType = fmt.Errorf("%w: unsupported file type", core.ErrInvalidInput)

	// ErrNotDirectory is returned when a directory ingestion is pointed at a file.
	ErrNotDirectory = fmt.Errorf("%w: path is not a directory", core.ErrInvalidInput)
)
