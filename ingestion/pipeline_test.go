package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/embedding"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

type testEnv struct {
	pipeline   *Pipeline
	collection *badger.Collection
	embedder   *mock.MockEmbedder
}

func setupPipeline(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	collection, backend, err := badger.NewMemoryCollection("test", testDimension, storage.Cosine)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	mockEmbedder := mock.NewMockEmbedderWithDimension(testDimension)
	batchEmbedder, err := embedding.New(mockEmbedder,
		embedding.WithBatchSize(1),
		embedding.WithMaxWorkers(4),
		embedding.WithDimension(testDimension),
		embedding.WithRetry(1, time.Millisecond, time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(batchEmbedder.Release)

	pipeline, err := NewPipeline(collection, collection, batchEmbedder, opts...)
	require.NoError(t, err)

	return &testEnv{pipeline: pipeline, collection: collection, embedder: mockEmbedder}
}

func TestNewPipeline_Validation(t *testing.T) {
	collection, backend, err := badger.NewMemoryCollection("test", testDimension, storage.Cosine)
	require.NoError(t, err)
	defer backend.Close()

	batchEmbedder, err := embedding.New(mock.NewMockEmbedderWithDimension(testDimension))
	require.NoError(t, err)
	defer batchEmbedder.Release()

	_, err = NewPipeline(nil, collection, batchEmbedder)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)

	_, err = NewPipeline(collection, nil, batchEmbedder)
	assert.ErrorIs(t, err, ErrRegistryRequired)

	_, err = NewPipeline(collection, collection, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(collection, collection, batchEmbedder, WithChunking(100, 100))
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestIngest_StoresChunks(t *testing.T) {
	env := setupPipeline(t, WithChunking(1000, 200))
	ctx := context.Background()

	doc := core.Document{
		Source:   "budget.txt",
		Text:     strings.Repeat("a", 2500),
		Metadata: map[string]string{core.MetaFilename: "budget.txt", core.MetaDocType: "financial"},
	}

	report, err := env.pipeline.Ingest(ctx, []core.Document{doc}, nil)
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)
	assert.True(t, report.Success())
	assert.Equal(t, 4, report.ChunksCreated)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, "budget.txt", report.Documents[0].Filename)

	starts := []string{"0", "800", "1600", "2400"}
	for i, start := range starts {
		record, err := env.collection.Get(ctx, core.ChunkID("budget.txt", i))
		require.NoError(t, err)
		assert.Equal(t, start, record.Metadata[core.MetaChunkStart])
		assert.Equal(t, "budget.txt", record.Metadata[core.MetaSource])
		assert.Equal(t, "financial", record.Metadata[core.MetaDocType])
		assert.Equal(t, string(record.Id), record.Metadata[core.MetaChunkID])
		assert.Len(t, record.Vector, testDimension)
	}

	info, err := env.collection.GetDocument(ctx, "budget.txt")
	require.NoError(t, err)
	assert.Equal(t, 4, info.ChunkCount)
	assert.Equal(t, 2500, info.Size)
}

func TestIngest_ReingestIsIdempotent(t *testing.T) {
	env := setupPipeline(t, WithChunking(100, 20))
	ctx := context.Background()

	doc := core.Document{Source: "a.txt", Text: strings.Repeat("x", 250)}
	_, err := env.pipeline.Ingest(ctx, []core.Document{doc}, nil)
	require.NoError(t, err)
	_, err = env.pipeline.Ingest(ctx, []core.Document{doc}, nil)
	require.NoError(t, err)

	stats, err := env.collection.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
}

func TestIngest_RemovesStaleChunks(t *testing.T) {
	env := setupPipeline(t, WithChunking(100, 20))
	ctx := context.Background()

	long := core.Document{Source: "a.txt", Text: strings.Repeat("x", 500)}
	report, err := env.pipeline.Ingest(ctx, []core.Document{long}, nil)
	require.NoError(t, err)
	require.Equal(t, 7, report.ChunksCreated)

	short := core.Document{Source: "a.txt", Text: strings.Repeat("y", 150)}
	report, err = env.pipeline.Ingest(ctx, []core.Document{short}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, report.ChunksCreated)

	stats, err := env.collection.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)

	_, err = env.collection.Get(ctx, core.ChunkID("a.txt", 2))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func intPtr(n int) *int { return &n }

func TestIngest_Overrides(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	doc := core.Document{Source: "a.txt", Text: strings.Repeat("x", 300)}
	report, err := env.pipeline.Ingest(ctx, []core.Document{doc}, &Overrides{ChunkSize: intPtr(100), ChunkOverlap: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, 6, report.ChunksCreated)

	_, err = env.pipeline.Ingest(ctx, []core.Document{doc}, &Overrides{ChunkSize: intPtr(100), ChunkOverlap: intPtr(100)})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	// overlap falls back to the pipeline default, which is larger than the size
	_, err = env.pipeline.Ingest(ctx, []core.Document{doc}, &Overrides{ChunkSize: intPtr(150)})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = env.pipeline.Ingest(ctx, []core.Document{doc}, &Overrides{ChunkSize: intPtr(0)})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestIngest_OverrideZeroOverlap(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	doc := core.Document{Source: "a.txt", Text: strings.Repeat("x", 300)}
	report, err := env.pipeline.Ingest(ctx, []core.Document{doc}, &Overrides{ChunkSize: intPtr(100), ChunkOverlap: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 3, report.ChunksCreated)

	for i, start := range []string{"0", "100", "200"} {
		record, err := env.collection.Get(ctx, core.ChunkID("a.txt", i))
		require.NoError(t, err)
		assert.Equal(t, start, record.Metadata[core.MetaChunkStart])
		assert.Len(t, record.Text, 100)
	}
}

func TestOverrides_IsZero(t *testing.T) {
	var nilOverrides *Overrides
	assert.True(t, nilOverrides.IsZero())
	assert.True(t, (&Overrides{}).IsZero())
	assert.False(t, (&Overrides{ChunkOverlap: intPtr(0)}).IsZero())
}

func TestIngest_InvalidDocumentDoesNotBlockOthers(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	docs := []core.Document{
		{Source: "", Text: "orphan"},
		{Source: "empty.txt", Text: "   "},
		{Source: "good.txt", Text: "the general fund appropriation"},
	}
	report, err := env.pipeline.Ingest(ctx, docs, nil)
	require.NoError(t, err)

	require.Len(t, report.Documents, 3)
	assert.Equal(t, 2, report.DocumentsFailed)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.ErrorIs(t, report.Documents[0].Err(), core.ErrEmptySource)
	assert.ErrorIs(t, report.Documents[1].Err(), core.ErrEmptyContent)
	assert.False(t, report.Documents[2].Failed())
	assert.Len(t, report.Errors(), 2)
	assert.False(t, report.Success())
}

func TestIngest_PartialEmbeddingFailure(t *testing.T) {
	env := setupPipeline(t, WithChunking(10, 0))
	ctx := context.Background()

	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string, role ai.Role) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			if strings.Contains(text, "!") {
				return nil, errors.New("invalid api key")
			}
			out[i] = mock.Vector(text, testDimension)
		}
		return out, nil
	}

	docs := []core.Document{
		{Source: "a.txt", Text: "aaaaaaaaaa!!!!!!!!!!bbbbbbbbbb"},
		{Source: "b.txt", Text: "cccccccccc"},
	}
	report, err := env.pipeline.Ingest(ctx, docs, nil)
	require.NoError(t, err)

	a := report.Documents[0]
	assert.False(t, a.Failed())
	assert.Equal(t, 2, a.ChunksCreated)
	assert.Equal(t, 1, a.ChunksFailed)
	assert.Equal(t, []int{1}, a.FailedChunks)

	b := report.Documents[1]
	assert.Equal(t, 1, b.ChunksCreated)

	assert.Equal(t, 3, report.ChunksCreated)
	assert.Equal(t, 1, report.ChunksFailed)

	_, err = env.collection.Get(ctx, core.ChunkID("a.txt", 1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngest_EmbeddingProviderDown(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string, role ai.Role) ([][]float32, error) {
		return nil, errors.New("unauthorized")
	}

	report, err := env.pipeline.Ingest(ctx, []core.Document{{Source: "a.txt", Text: "hello"}}, nil)
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)
	assert.ErrorIs(t, report.Documents[0].Err(), core.ErrEmbeddingProvider)
	assert.Equal(t, 1, report.DocumentsFailed)

	_, err = env.collection.GetDocument(ctx, "a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngestFiles(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()
	dir := t.TempDir()

	good := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(good, []byte("Department of Revenue spends $1,000"), 0o644))
	pdf := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	report, err := env.pipeline.IngestFiles(ctx, []string{good, pdf, filepath.Join(dir, "missing.txt")}, nil)
	require.NoError(t, err)
	require.Len(t, report.Documents, 3)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 2, report.DocumentsFailed)

	var stored *DocumentReport
	for _, d := range report.Documents {
		switch d.Source {
		case good:
			stored = d
		case pdf:
			assert.ErrorIs(t, d.Err(), ErrUnsupportedFileType)
		default:
			assert.ErrorIs(t, d.Err(), core.ErrNotFound)
		}
	}
	require.NotNil(t, stored)
	assert.Equal(t, "notes.md", stored.Filename)
	assert.Equal(t, "department of revenue", stored.Metadata[MetaDepartments])
}

func TestIngestDirectory(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first document"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("col1,col2\n1,2"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.txt"), []byte("skipped"), 0o644))

	report, err := env.pipeline.IngestDirectory(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DocumentsProcessed)

	docs, err := env.collection.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = env.pipeline.IngestDirectory(ctx, filepath.Join(dir, "nope"), nil)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = env.pipeline.IngestDirectory(ctx, filepath.Join(dir, "a.txt"), nil)
	assert.ErrorIs(t, err, ErrNotDirectory)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestIngestUploads(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	uploads := []Upload{
		{Name: "hb1.txt", Reader: strings.NewReader("House Bill 1 for fiscal year 2025")},
		{Name: "image.png", Reader: strings.NewReader("binary")},
	}
	report, err := env.pipeline.IngestUploads(ctx, uploads, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 1, report.DocumentsFailed)

	info, err := env.collection.GetDocument(ctx, "hb1.txt")
	require.NoError(t, err)
	assert.Equal(t, "budget_bill", info.Metadata[MetaDocumentCategory])
	assert.Equal(t, "2025", info.Metadata[MetaFiscalYears])
}
