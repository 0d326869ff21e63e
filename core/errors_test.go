package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"configuration", fmt.Errorf("%w: chunk overlap must be smaller than chunk size", ErrInvalidConfiguration), KindInvalidConfiguration},
		{"embedding", fmt.Errorf("batch 2: %w", ErrEmbeddingProvider), KindEmbeddingProvider},
		{"store write", ErrStoreWrite, KindStoreWrite},
		{"store read", ErrStoreRead, KindStoreRead},
		{"llm", ErrLLMSynthesis, KindLLMSynthesis},
		{"input", fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyContent), KindInvalidInput},
		{"not found", fmt.Errorf("record x: %w", ErrNotFound), KindNotFound},
		{"unclassified", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
