package storage

import (
	"context"
	"time"

	"github.com/poiesic/docrag/core"
)

// Filter is an exact-match predicate over record metadata.
// A record matches when every key is present with the given value.
type Filter map[string]string

// Matches reports whether metadata satisfies the filter. An empty filter matches everything.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, want := range f {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Schema is the persisted shape of a collection.
type Schema struct {
	Name      string
	Dimension int
	Distance  Distance
	CreatedAt time.Time
}

// Stats summarizes a collection.
type Stats struct {
	Collection string
	Count      int
	Dimension  int
	Distance   Distance
}

// VectorStore persists records and answers nearest-neighbor queries.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Upsert inserts or replaces records by ID. Upserting the same record twice
	// leaves one copy. Every vector must match the collection's dimension.
	Upsert(ctx context.Context, records ...*core.Record) error

	// Search returns up to k records nearest to vector, closest first.
	// Only records matching filter are considered. A nil filter matches everything.
	Search(ctx context.Context, vector []float32, k int, filter Filter) ([]core.Match, error)

	// Get retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Record, error)

	// Delete removes records by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids ...core.ID) error

	// ForEach calls fn with successive batches of at most batchSize records.
	// Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, batchSize int, fn func(records []*core.Record) error) error

	// Stats returns the record count and schema of the collection.
	Stats(ctx context.Context) (*Stats, error)

	// Reset deletes every record and registry entry of the collection.
	// The schema is kept. This cannot be undone.
	Reset(ctx context.Context) error
}

// DocumentRegistry tracks which sources have been ingested.
type DocumentRegistry interface {
	// PutDocument creates or replaces the registry entry for info.Source.
	PutDocument(ctx context.Context, info *core.DocumentInfo) error

	// GetDocument returns the entry for source.
	// Returns ErrNotFound if the source was never ingested.
	GetDocument(ctx context.Context, source string) (*core.DocumentInfo, error)

	// ListDocuments returns every entry ordered by source.
	ListDocuments(ctx context.Context) ([]*core.DocumentInfo, error)
}

// Collection is a named vector store with its document registry.
type Collection interface {
	VectorStore
	DocumentRegistry

	// Schema returns the collection's name, dimension and distance.
	Schema() Schema
}
