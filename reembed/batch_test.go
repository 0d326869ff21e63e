package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProcessor_Process(t *testing.T) {
	source, target := setupTestDB(t)
	ctx := context.Background()
	seed(t, source, 2)

	var records []*core.Record
	require.NoError(t, source.ForEach(ctx, 10, func(batch []*core.Record) error {
		records = append(records, batch...)
		return nil
	}))

	processor := NewBatchProcessor(target, &mockEmbedder{}, 3, 10*time.Millisecond, true)
	require.NoError(t, processor.Process(ctx, records))

	for _, record := range records {
		updated, err := target.Get(ctx, record.Id)
		require.NoError(t, err)
		assert.Equal(t, record.Text, updated.Text)
		assert.Equal(t, record.Metadata, updated.Metadata)
		assert.InDelta(t, 1.0, magnitude(updated.Vector), 0.01, "vector should be normalized")
	}
}

func TestBatchProcessor_WithoutNormalization(t *testing.T) {
	source, target := setupTestDB(t)
	ctx := context.Background()
	seed(t, source, 1)

	record, err := source.Get(ctx, core.ChunkID("doc.txt", 0))
	require.NoError(t, err)

	processor := NewBatchProcessor(target, &mockEmbedder{}, 1, time.Millisecond, false)
	require.NoError(t, processor.Process(ctx, []*core.Record{record}))

	updated, err := target.Get(ctx, record.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 2}, updated.Vector)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	_, target := setupTestDB(t)
	embedder := &mockEmbedder{}

	processor := NewBatchProcessor(target, embedder, 3, 10*time.Millisecond, true)
	require.NoError(t, processor.Process(context.Background(), nil))
	assert.Equal(t, 0, embedder.calls)
}

func TestBatchProcessor_RetriesThenSucceeds(t *testing.T) {
	source, target := setupTestDB(t)
	ctx := context.Background()
	seed(t, source, 1)
	record, err := source.Get(ctx, core.ChunkID("doc.txt", 0))
	require.NoError(t, err)

	attempts := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("temporary error")
			}
			return [][]float32{{0, 3, 4}}, nil
		},
	}

	processor := NewBatchProcessor(target, embedder, 3, time.Millisecond, true)
	require.NoError(t, processor.Process(ctx, []*core.Record{record}))
	assert.Equal(t, 3, attempts)
}

func TestBatchProcessor_MaxRetriesExceeded(t *testing.T) {
	source, target := setupTestDB(t)
	ctx := context.Background()
	seed(t, source, 1)
	record, err := source.Get(ctx, core.ChunkID("doc.txt", 0))
	require.NoError(t, err)

	embedder := &mockEmbedder{
		embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("persistent error")
		},
	}

	processor := NewBatchProcessor(target, embedder, 2, time.Millisecond, true)
	err = processor.Process(ctx, []*core.Record{record})
	assert.ErrorIs(t, err, core.ErrEmbeddingProvider)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, embedder.calls)
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	source, target := setupTestDB(t)
	ctx := context.Background()
	seed(t, source, 2)

	var records []*core.Record
	require.NoError(t, source.ForEach(ctx, 10, func(batch []*core.Record) error {
		records = append(records, batch...)
		return nil
	}))

	embedder := &mockEmbedder{
		embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
	}

	processor := NewBatchProcessor(target, embedder, 1, time.Millisecond, true)
	err := processor.Process(ctx, records)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2, got 1")
}

func TestBatchProcessor_DimensionMismatch(t *testing.T) {
	source, target := setupTestDB(t)
	ctx := context.Background()
	seed(t, source, 1)
	record, err := source.Get(ctx, core.ChunkID("doc.txt", 0))
	require.NoError(t, err)

	embedder := &mockEmbedder{
		embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		},
	}

	processor := NewBatchProcessor(target, embedder, 1, time.Millisecond, true)
	err = processor.Process(ctx, []*core.Record{record})
	assert.ErrorIs(t, err, core.ErrStoreWrite)
}
