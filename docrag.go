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


package docrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/ollama"
	"github.com/poiesic/docrag/ai/openai"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/embedding"
	"github.com/poiesic/docrag/ingestion"
	"github.com/poiesic/docrag/query"
	"github.com/poiesic/docrag/reembed"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
)

// ErrConfigRequired is returned when Open is called without a configuration.
var ErrConfigRequired = errors.New("configuration required")

// Service wires the vector store, the AI provider, the ingestion pipeline and
// the query service for one collection.
type Service struct {
	config     *config.Config
	backend    *badger.Backend
	collection *badger.Collection
	provider   ai.AIProvider
	embedder   *embedding.BatchEmbedder
	pipeline   *ingestion.Pipeline
	query      *query.Service
	logger     *slog.Logger
}

// Option configures Open and Reembed.
type Option func(*options)

type options struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider uses provider instead of building one from the configuration.
// The Service closes it on Close.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithLogger sets the logger handed to every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// NewProvider builds the AI provider selected by cfg.EmbeddingProvider and
// cfg.LLMProvider. The two may differ. LLM provider "none" leaves the
// completer nil.
func NewProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var embedder ai.Embedder
	var err error
	switch cfg.EmbeddingProvider {
	case ai.ProviderOllama:
		embedder, err = ollama.NewEmbedder(cfg)
	default:
		embedder, err = openai.NewEmbedder(cfg)
	}
	if err != nil {
		return nil, err
	}

	var completer ai.Completer
	switch cfg.LLMProvider {
	case ai.ProviderOllama:
		completer, err = ollama.NewCompleter(cfg)
	case ai.ProviderOpenAI:
		completer, err = openai.NewCompleter(cfg)
	}
	if err != nil {
		return nil, err
	}

	return ai.Compose(embedder, completer), nil
}

// Open opens the configured collection and builds the services around it.
// cfg must have been validated, normally by config.Load.
func Open(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := applyOptions(opts)

	backend, err := badger.OpenBackend(cfg.Store.Path, cfg.Store.InMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: opening vector store: %w", core.ErrStoreRead, err)
	}

	collection, err := badger.OpenCollection(backend, cfg.Store.Collection,
		cfg.Embedding.Dimensions, storage.Distance(cfg.Store.Distance))
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := o.provider
	if provider == nil {
		provider, err = NewProvider(cfg.AIConfig())
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	embedder, err := newBatchEmbedder(cfg, provider, o.logger)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(collection, collection, embedder,
		ingestion.WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap),
		ingestion.WithLoader(ingestion.NewLoader(cfg.Documents.DocType, cfg.Documents.FileTypes)),
		ingestion.WithLogger(o.logger),
	)
	if err != nil {
		embedder.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	queries, err := query.NewService(collection, embedder, provider.Completer(),
		query.WithDefaultResults(cfg.Query.DefaultResults),
		query.WithSynthesisTimeout(cfg.Embedding.Timeout.Std()),
		query.WithLogger(o.logger),
	)
	if err != nil {
		embedder.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	s := &Service{
		config:     cfg,
		backend:    backend,
		collection: collection,
		provider:   provider,
		embedder:   embedder,
		pipeline:   pipeline,
		query:      queries,
		logger:     o.logger.With("component", "docrag"),
	}
	s.logger.Info("service opened",
		"collection", cfg.Store.Collection,
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_model", cfg.Embedding.Model,
		"synthesis", queries.SynthesisEnabled())
	return s, nil
}

func newBatchEmbedder(cfg *config.Config, provider ai.AIProvider, logger *slog.Logger) (*embedding.BatchEmbedder, error) {
	e := cfg.Embedding
	return embedding.New(provider.Embedder(),
		embedding.WithBatchSize(e.BatchSize),
		embedding.WithMaxWorkers(e.MaxWorkers),
		embedding.WithDimension(e.Dimensions),
		embedding.WithTimeout(e.Timeout.Std()),
		embedding.WithRetry(e.MaxRetries, e.RetryDelay.Std(), e.RetryMaxDelay.Std()),
		embedding.WithRateLimit(e.RateLimit),
		embedding.WithLogger(logger),
	)
}

// Close releases the worker pool, the provider and the store.
func (s *Service) Close() error {
	s.embedder.Release()

	var errs []error
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Config returns the configuration the service was opened with.
func (s *Service) Config() *config.Config {
	return s.config
}

// Collection returns the open collection.
func (s *Service) Collection() storage.Collection {
	return s.collection
}

// Pipeline returns the ingestion pipeline.
func (s *Service) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

// Query returns the query service.
func (s *Service) Query() *query.Service {
	return s.query
}

// Embedder returns the batch embedder shared by ingestion and queries.
func (s *Service) Embedder() *embedding.BatchEmbedder {
	return s.embedder
}

// Stats describes the collection and the models serving it.
type Stats struct {
	Collection          string `json:"collection_name"`
	Records             int    `json:"record_count"`
	Documents           int    `json:"document_count"`
	Distance            string `json:"distance"`
	EmbeddingProvider   string `json:"embedding_provider"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	LLMModel            string `json:"llm_model,omitempty"`
	Synthesis           bool   `json:"synthesis_enabled"`
}

// Stats counts the records and registered documents of the collection.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.collection.Stats(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.collection.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		Collection:          st.Collection,
		Records:             st.Count,
		Documents:           len(docs),
		Distance:            string(st.Distance),
		EmbeddingProvider:   s.config.Embedding.Provider,
		EmbeddingModel:      s.config.Embedding.Model,
		EmbeddingDimensions: st.Dimension,
		Synthesis:           s.query.SynthesisEnabled(),
	}
	if out.Synthesis {
		out.LLMModel = s.config.LLM.Model
	}
	return out, nil
}

// CheckProviders embeds a short test text and, when synthesis is enabled, asks the
// language model for a one word reply. It reports the first failure.
func (s *Service) CheckProviders(ctx context.Context) error {
	if _, err := s.embedder.EmbedQuery(ctx, "connectivity check"); err != nil {
		return fmt.Errorf("embedding provider %s: %w", s.config.Embedding.Provider, err)
	}

	completer := s.provider.Completer()
	if completer == nil {
		return nil
	}
	if _, err := completer.Complete(ctx, "Reply with the single word OK."); err != nil {
		return fmt.Errorf("%w: llm provider %s: %w", core.ErrLLMSynthesis, s.config.LLM.Provider, err)
	}
	return nil
}

// Reembed recomputes every vector of the source collection with the embedding
// model in cfg and writes the records to the target collection, which may be
// the source itself when the dimension is unchanged. The target is created
// with cfg's dimension and distance when it does not exist.
func Reembed(ctx context.Context, cfg *config.Config, source, target string, rcfg *reembed.Config, progress io.Writer, opts ...Option) (*reembed.Result, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := applyOptions(opts)
	if target == "" {
		target = source
	}

	backend, err := badger.OpenBackend(cfg.Store.Path, cfg.Store.InMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: opening vector store: %w", core.ErrStoreRead, err)
	}
	defer backend.Close()

	return reembedCollections(ctx, backend, cfg, source, target, rcfg, progress, o)
}

func reembedCollections(ctx context.Context, backend *badger.Backend, cfg *config.Config, source, target string, rcfg *reembed.Config, progress io.Writer, o *options) (*reembed.Result, error) {
	schema, err := badger.ReadSchema(backend, source)
	if err != nil {
		return nil, err
	}
	src, err := badger.OpenCollection(backend, source, schema.Dimension, schema.Distance)
	if err != nil {
		return nil, err
	}

	dst := src
	if target != source {
		dst, err = badger.OpenCollection(backend, target, cfg.Embedding.Dimensions, storage.Distance(cfg.Store.Distance))
		if err != nil {
			return nil, err
		}
	} else if schema.Dimension != cfg.Embedding.Dimensions {
		return nil, fmt.Errorf("%w: collection %s has dimension %d, the configured model produces %d; re-embed into a new collection",
			core.ErrInvalidConfiguration, source, schema.Dimension, cfg.Embedding.Dimensions)
	}

	provider := o.provider
	if provider == nil {
		provider, err = NewProvider(cfg.AIConfig())
		if err != nil {
			return nil, err
		}
	}
	defer provider.Close()

	r, err := reembed.NewReembedder(src, dst, provider.Embedder(), rcfg, progress)
	if err != nil {
		return nil, err
	}

	o.logger.Info("re-embedding collection", "source", source, "target", target, "model", cfg.Embedding.Model)
	return r.Run(ctx)
}
