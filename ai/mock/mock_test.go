package mock

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/docrag/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Default(t *testing.T) {
	m := NewMockEmbedderWithDimension(16)

	vectors, err := m.EmbedTexts(context.Background(), []string{"a", "b", "a"}, ai.RoleDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Len(t, vectors[0], 16)
	assert.Equal(t, vectors[0], vectors[2])
	assert.NotEqual(t, vectors[0], vectors[1])

	var sum float64
	for _, v := range vectors[0] {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)

	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, 3, m.TextCount())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Zero(t, m.TextCount())
}

func TestMockCompleter(t *testing.T) {
	m := NewMockCompleter()
	answer, err := m.Complete(context.Background(), "what is HB 2?")
	require.NoError(t, err)
	assert.Equal(t, "mock answer", answer)
	assert.Equal(t, "what is HB 2?", m.LastPrompt())

	failing := NewFailingCompleter()
	_, err = failing.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Completer())
	assert.NoError(t, p.Close())

	noLLM := NewMockProviderWithServices(NewMockEmbedder(), nil)
	assert.Nil(t, noLLM.Completer())
}
