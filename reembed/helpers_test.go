package reembed

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/stretchr/testify/require"
)

// mockEmbedder for testing
type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls          int
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string, role ai.Role) ([][]float32, error) {
	m.calls++
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	// Default: return unnormalized vectors for each text
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0} // magnitude = 3.0
	}
	return result, nil
}

// setupTestDB opens source and target collections of dimension 3 in one backend.
func setupTestDB(t *testing.T) (*badger.Collection, *badger.Collection) {
	t.Helper()

	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	source, err := badger.OpenCollection(backend, "source", 3, storage.Cosine)
	require.NoError(t, err)
	target, err := badger.OpenCollection(backend, "target", 3, storage.Cosine)
	require.NoError(t, err)

	return source, target
}

func seed(t *testing.T, c *badger.Collection, n int) {
	t.Helper()
	records := make([]*core.Record, n)
	for i := range records {
		records[i] = &core.Record{
			Id:       core.ChunkID("doc.txt", i),
			Vector:   []float32{0, 0, 1},
			Text:     fmt.Sprintf("chunk %d", i),
			Metadata: map[string]string{core.MetaSource: "doc.txt"},
		}
	}
	require.NoError(t, c.Upsert(context.Background(), records...))
}

func magnitude(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return sum
}
