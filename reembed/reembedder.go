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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Normalize scales vectors to unit length before storing
	Normalize bool

	// ContinueOnError skips failed batches instead of stopping the run
	ContinueOnError bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Normalize:      true,
	}
}

// Result summarizes a run.
type Result struct {
	Records   int
	Failed    int
	Documents int
	Elapsed   time.Duration
}

// Reembedder orchestrates the reembedding of every record in a collection.
type Reembedder struct {
	source    storage.Collection
	target    storage.Collection
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *RecordIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// source and target may be the same collection.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(source, target storage.Collection, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if target == nil {
		return nil, ErrTargetRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries < 1 {
		return nil, fmt.Errorf("%w: max retries must be positive, got %d", core.ErrInvalidConfiguration, config.MaxRetries)
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		source:    source,
		target:    target,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(target, embedder, config.MaxRetries, config.RetryDelay, config.Normalize),
		iterator:  NewRecordIterator(source, config.BatchSize),
		logger: slog.Default().With("component", "reembed",
			"source", source.Schema().Name, "target", target.Schema().Name),
	}, nil
}

// Run reembeds every record of the source into the target and copies the
// document registry. Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	stats, err := r.source.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	result := &Result{}
	if stats.Count == 0 {
		fmt.Fprintf(r.progress, "No records found in collection %s (0 records)\n", stats.Collection)
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d records (batch size: %d)\n",
		stats.Count, r.iterator.batchSize)

	tracker := newProgress(r.progress, stats.Count, r.config.ReportInterval)
	tracker.begin()

	err = r.iterator.ForEach(ctx, func(records []*core.Record) error {
		if err := r.processor.Process(ctx, records); err != nil {
			if !r.config.ContinueOnError {
				return fmt.Errorf("failed to process batch: %w", err)
			}
			r.logger.Warn("skipping failed batch", "records", len(records), "first_id", records[0].Id, "err", err)
			tracker.batch(len(records), len(records))
			return nil
		}
		tracker.batch(len(records), 0)
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs, err := r.copyRegistry(ctx)
	if err != nil {
		return nil, err
	}

	tracker.summary(result)
	result.Documents = docs

	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d records in %v (%.1f records/sec)\n",
		result.Records, result.Elapsed.Round(time.Second), float64(result.Records)/result.Elapsed.Seconds())
	r.logger.Info("reembedding complete", "records", result.Records, "failed", result.Failed, "documents", docs)

	return result, nil
}

// copyRegistry copies every registry entry from source to target.
func (r *Reembedder) copyRegistry(ctx context.Context) (int, error) {
	if r.source == r.target {
		return 0, nil
	}
	docs, err := r.source.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if err := r.target.PutDocument(ctx, doc); err != nil {
			return 0, fmt.Errorf("failed to copy registry entry %s: %w", doc.Source, err)
		}
	}
	return len(docs), nil
}
