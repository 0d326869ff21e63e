package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/embedding"
	"github.com/poiesic/docrag/storage"
)

// BatchProcessor embeds batches of records again and writes them to a target store.
type BatchProcessor struct {
	target         storage.VectorStore
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	normalize      bool
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each embedding call
// retryBaseDelay: base delay for exponential backoff
// normalize: scale vectors to unit length before storing
func NewBatchProcessor(target storage.VectorStore, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, normalize bool) *BatchProcessor {
	return &BatchProcessor{
		target:         target,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		normalize:      normalize,
	}
}

// Process embeds the text of records and upserts them into the target with
// their IDs, text and metadata unchanged.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.Record) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Text
	}

	var vectors [][]float32
	err := embedding.RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts, ai.RoleDocument)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("%w: failed to generate embeddings after %d attempts: %w",
			core.ErrEmbeddingProvider, bp.maxRetries, err)
	}

	if len(vectors) != len(records) {
		return fmt.Errorf("%w: expected %d, got %d", ai.ErrResultCount, len(records), len(vectors))
	}

	updated := make([]*core.Record, len(records))
	for i, record := range records {
		vector := vectors[i]
		if bp.normalize {
			vector = embedding.NormalizeVector(vector)
		}
		updated[i] = &core.Record{
			Id:       record.Id,
			Vector:   vector,
			Text:     record.Text,
			Metadata: record.Metadata,
		}
	}

	if err := bp.target.Upsert(ctx, updated...); err != nil {
		return fmt.Errorf("failed to update records: %w", err)
	}

	return nil
}
