package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedTexts(ctx context.Context, texts []string, role Role) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func TestCompose(t *testing.T) {
	t.Run("without completer", func(t *testing.T) {
		p := Compose(stubEmbedder{}, nil)

		assert.NotNil(t, p.Embedder())
		assert.Nil(t, p.Completer())
		assert.NoError(t, p.Close())
	})

	t.Run("close runs every closer", func(t *testing.T) {
		var calls []int
		boom := errors.New("boom")
		p := Compose(stubEmbedder{}, nil,
			func() error { calls = append(calls, 1); return boom },
			func() error { calls = append(calls, 2); return nil },
		)

		err := p.Close()
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []int{1, 2}, calls)
	})
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "document", RoleDocument.String())
	assert.Equal(t, "query", RoleQuery.String())
	assert.Equal(t, "unknown", Role(7).String())
}
