// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

const (
	// DefaultBatchSize is the default number of records to fetch in each batch
	DefaultBatchSize = 100
)

// RecordIterator iterates over all records of a store in batches.
type RecordIterator struct {
	store     storage.VectorStore
	batchSize int
}

// NewRecordIterator creates a new record iterator.
// batchSize: number of records in each batch; non-positive values use DefaultBatchSize
func NewRecordIterator(store storage.VectorStore, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		store:     store,
		batchSize: batchSize,
	}
}

// ForEach iterates over all records, calling fn for each batch.
// Iteration stops on first error from fn or when all records are processed.
// Context cancellation is checked between batches.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]*core.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return it.store.ForEach(ctx, it.batchSize, func(records []*core.Record) error {
		if err := fn(records); err != nil {
			return err
		}
		return ctx.Err()
	})
}
