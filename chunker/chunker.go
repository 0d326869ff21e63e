package chunker

import (
	"fmt"
	"iter"

	"github.com/poiesic/docrag/core"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker produces overlapping windows over text. It is immutable and safe
// for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. The size must be positive and the overlap must be
// non-negative and smaller than the size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", core.ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			core.ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns a lazy sequence of chunks over text. Each iteration of the
// returned sequence starts again from the beginning. Empty text yields nothing.
func (c *Chunker) Chunks(text string) iter.Seq[core.Chunk] {
	return func(yield func(core.Chunk) bool) {
		runes := []rune(text)
		n := len(runes)
		step := c.size - c.overlap

		for i, start := 0, 0; start < n; i, start = i+1, start+step {
			end := min(start+c.size, n)
			chunk := core.Chunk{
				Index: i,
				Start: start,
				End:   end,
				Text:  string(runes[start:end]),
			}
			if !yield(chunk) {
				return
			}
			if n <= c.size {
				return
			}
		}
	}
}

// Split is a convenience wrapper that collects all chunks of text.
func Split(text string, size, overlap int) ([]core.Chunk, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	var chunks []core.Chunk
	for chunk := range c.Chunks(text) {
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
