package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIterator_ForEach(t *testing.T) {
	source, _ := setupTestDB(t)
	seed(t, source, 25)

	iterator := NewRecordIterator(source, 10)

	var batchSizes []int
	total := 0
	err := iterator.ForEach(context.Background(), func(records []*core.Record) error {
		batchSizes = append(batchSizes, len(records))
		total += len(records)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 5}, batchSizes)
	assert.Equal(t, 25, total)
}

func TestRecordIterator_DefaultBatchSize(t *testing.T) {
	source, _ := setupTestDB(t)
	iterator := NewRecordIterator(source, 0)
	assert.Equal(t, DefaultBatchSize, iterator.batchSize)
}

func TestRecordIterator_Empty(t *testing.T) {
	source, _ := setupTestDB(t)

	called := false
	err := NewRecordIterator(source, 10).ForEach(context.Background(), func(records []*core.Record) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRecordIterator_StopsOnError(t *testing.T) {
	source, _ := setupTestDB(t)
	seed(t, source, 25)

	boom := errors.New("boom")
	calls := 0
	err := NewRecordIterator(source, 10).ForEach(context.Background(), func(records []*core.Record) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRecordIterator_ContextCancellation(t *testing.T) {
	source, _ := setupTestDB(t)
	seed(t, source, 25)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewRecordIterator(source, 10).ForEach(ctx, func(records []*core.Record) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)

	err = NewRecordIterator(source, 10).ForEach(ctx, func(records []*core.Record) error {
		t.Fatal("should not be called with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
