package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
)

const (
	DefaultBatchSize   = 32
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
	DefaultTimeout     = 60 * time.Second
)

// BatchEmbedder splits embedding work into provider-sized batches and runs
// them on a bounded worker pool. Results are joined by input index.
type BatchEmbedder struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	limiter   *RateLimiter
	batchSize int
	dimension int
	timeout   time.Duration
	backoff   Backoff
	logger    *slog.Logger
}

// Option configures a BatchEmbedder.
type Option func(*BatchEmbedder) error

// WithBatchSize sets the maximum number of texts per provider call.
func WithBatchSize(size int) Option {
	return func(b *BatchEmbedder) error {
		if size < 1 {
			return fmt.Errorf("%w: embedding batch size must be positive, got %d", core.ErrInvalidConfiguration, size)
		}
		b.batchSize = size
		return nil
	}
}

// WithMaxWorkers sets how many batches may be in flight at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithMaxWorkers(size int) Option {
	return func(b *BatchEmbedder) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if b.pool != nil {
			b.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithDimension sets the expected vector length. Zero disables the check.
func WithDimension(dim int) Option {
	return func(b *BatchEmbedder) error {
		if dim < 0 {
			return fmt.Errorf("%w: embedding dimension must not be negative", core.ErrInvalidConfiguration)
		}
		b.dimension = dim
		return nil
	}
}

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(b *BatchEmbedder) error {
		if d <= 0 {
			return fmt.Errorf("%w: request timeout must be positive", core.ErrInvalidConfiguration)
		}
		b.timeout = d
		return nil
	}
}

// WithRetry sets the retry policy for transient provider failures.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(b *BatchEmbedder) error {
		if maxAttempts < 1 {
			return fmt.Errorf("%w: %w", core.ErrInvalidConfiguration, ErrInvalidMaxAttempts)
		}
		b.backoff.MaxAttempts = maxAttempts
		b.backoff.BaseDelay = baseDelay
		b.backoff.MaxDelay = maxDelay
		return nil
	}
}

// WithRateLimit throttles provider calls to requestsPerSecond. Zero is unlimited.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(b *BatchEmbedder) error {
		b.limiter = NewRateLimiter(requestsPerSecond)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *BatchEmbedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// New creates a BatchEmbedder around a provider embedder.
func New(embedder ai.Embedder, opts ...Option) (*BatchEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &BatchEmbedder{
		embedder:  embedder,
		pool:      pool,
		limiter:   NewRateLimiter(0),
		batchSize: DefaultBatchSize,
		timeout:   DefaultTimeout,
		backoff: Backoff{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
			MaxDelay:    DefaultMaxDelay,
			Retryable:   IsTransient,
		},
		logger: slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	b.logger = b.logger.With("component", "batch-embedder")

	return b, nil
}

// Dimension returns the expected vector length, or zero if unchecked.
func (b *BatchEmbedder) Dimension() int {
	return b.dimension
}

// Embed returns one vector per text in input order.
//
// On failure the returned slice still has len(texts) entries: vectors for
// batches that succeeded are filled in, the rest are nil, and the error is an
// *Error listing the failed indices. Cancelling ctx fails all pending batches.
func (b *BatchEmbedder) Embed(ctx context.Context, texts []string, role ai.Role) ([][]float32, error) {
	results := make([][]float32, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	batches := (len(texts) + b.batchSize - 1) / b.batchSize
	batchErrs := make([]error, batches)
	b.logger.Debug("embedding texts", "texts", len(texts), "batches", batches, "role", role)

	var wg sync.WaitGroup
	for i := 0; i < batches; i++ {
		start := i * b.batchSize
		end := min(start+b.batchSize, len(texts))

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			vectors, err := b.embedBatch(ctx, texts[start:end], role)
			if err != nil {
				batchErrs[i] = fmt.Errorf("batch %d [%d:%d]: %w", i, start, end, err)
				return
			}
			copy(results[start:end], vectors)
		})
		if err != nil {
			wg.Done()
			batchErrs[i] = fmt.Errorf("batch %d [%d:%d]: %w", i, start, end, err)
		}
	}
	wg.Wait()

	var failed []int
	var causes []error
	for i, err := range batchErrs {
		if err == nil {
			continue
		}
		causes = append(causes, err)
		start := i * b.batchSize
		end := min(start+b.batchSize, len(texts))
		for idx := start; idx < end; idx++ {
			failed = append(failed, idx)
		}
	}
	if len(failed) > 0 {
		b.logger.Error("embedding batches failed", "failed_batches", len(causes), "failed_texts", len(failed))
		return results, &Error{Failed: failed, Err: errors.Join(causes...)}
	}

	return results, nil
}

// EmbedQuery embeds a single search query.
func (b *BatchEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.Embed(ctx, []string{text}, ai.RoleQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch performs one throttled, time-bounded and retried provider call.
func (b *BatchEmbedder) embedBatch(ctx context.Context, texts []string, role ai.Role) ([][]float32, error) {
	var vectors [][]float32
	err := b.backoff.Do(ctx, func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()

		out, err := b.embedder.EmbedTexts(callCtx, texts, role)
		if err != nil {
			if isRateLimited(err) {
				b.limiter.RecordRateLimitError(b.backoff.BaseDelay)
			}
			b.logger.Warn("embedding call failed", "texts", len(texts), "err", err)
			return err
		}
		if err := b.validate(texts, out); err != nil {
			return err
		}
		vectors = out
		return nil
	})
	return vectors, err
}

func (b *BatchEmbedder) validate(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: want %d, got %d", ai.ErrResultCount, len(texts), len(vectors))
	}
	if b.dimension == 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != b.dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), b.dimension)
		}
	}
	return nil
}

// Release releases the worker pool.
// The embedder should not be used after calling Release.
func (b *BatchEmbedder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
