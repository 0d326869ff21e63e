package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/chunker"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/embedding"
	"github.com/poiesic/docrag/storage"
)

// Pipeline chunks, embeds and stores documents.
// It is safe for concurrent use.
type Pipeline struct {
	store    storage.VectorStore
	registry storage.DocumentRegistry
	embedder *embedding.BatchEmbedder
	chunker  *chunker.Chunker
	loader   *Loader
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the default chunk size and overlap in characters.
// Default is chunker.DefaultChunkSize and chunker.DefaultChunkOverlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		c, err := chunker.New(size, overlap)
		if err != nil {
			return err
		}
		p.chunker = c
		return nil
	}
}

// WithLoader sets the loader used for files and uploads.
// Default is NewLoader(DocTypeFinancial, DefaultFileTypes).
func WithLoader(loader *Loader) Option {
	return func(p *Pipeline) error {
		if loader != nil {
			p.loader = loader
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	store storage.VectorStore,
	registry storage.DocumentRegistry,
	embedder *embedding.BatchEmbedder,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	defaultChunker, err := chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:    store,
		registry: registry,
		embedder: embedder,
		chunker:  defaultChunker,
		loader:   NewLoader(DocTypeFinancial, DefaultFileTypes),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Loader returns the loader used for files and uploads.
func (p *Pipeline) Loader() *Loader {
	return p.loader
}

// Overrides replaces the pipeline's chunking settings for one call.
// Nil fields keep the pipeline defaults; a zero ChunkOverlap disables overlap.
type Overrides struct {
	ChunkSize    *int
	ChunkOverlap *int
}

// IsZero reports whether o leaves both settings at their defaults.
func (o *Overrides) IsZero() bool {
	return o == nil || (o.ChunkSize == nil && o.ChunkOverlap == nil)
}

func (p *Pipeline) chunkerFor(overrides *Overrides) (*chunker.Chunker, error) {
	if overrides.IsZero() {
		return p.chunker, nil
	}
	size, overlap := p.chunker.Size(), p.chunker.Overlap()
	if overrides.ChunkSize != nil {
		size = *overrides.ChunkSize
	}
	if overrides.ChunkOverlap != nil {
		overlap = *overrides.ChunkOverlap
	}
	return chunker.New(size, overlap)
}

// pending is a document waiting for its chunk vectors.
type pending struct {
	doc     *core.Document
	report  *DocumentReport
	records []*core.Record
	offset  int // index of the first chunk in the shared text slice
}

// Ingest stores docs and reports the outcome per document.
//
// Only invalid overrides fail the call. Every other failure is recorded in
// the report and never stops the remaining documents.
func (p *Pipeline) Ingest(ctx context.Context, docs []core.Document, overrides *Overrides) (*Report, error) {
	return p.ingest(ctx, docs, nil, overrides)
}

// IngestFiles loads and stores the files at paths.
// Unreadable or unsupported files are reported as failed documents.
func (p *Pipeline) IngestFiles(ctx context.Context, paths []string, overrides *Overrides) (*Report, error) {
	var docs []core.Document
	var failures []*DocumentReport
	for _, path := range paths {
		doc, err := p.loader.LoadFile(path)
		if err != nil {
			failures = append(failures, failedDocument(path, err))
			continue
		}
		docs = append(docs, *doc)
	}
	return p.ingest(ctx, docs, failures, overrides)
}

// Upload is a named document body, such as a multipart file part.
type Upload struct {
	Name   string
	Reader io.Reader
}

// IngestUploads loads and stores uploaded documents.
func (p *Pipeline) IngestUploads(ctx context.Context, uploads []Upload, overrides *Overrides) (*Report, error) {
	var docs []core.Document
	var failures []*DocumentReport
	for _, upload := range uploads {
		doc, err := p.loader.LoadReader(upload.Name, upload.Reader)
		if err != nil {
			failures = append(failures, failedDocument(upload.Name, err))
			continue
		}
		docs = append(docs, *doc)
	}
	return p.ingest(ctx, docs, failures, overrides)
}

// IngestDirectory stores every regular file directly inside dir.
// Subdirectories are skipped. Files with unsupported extensions are reported as failures.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string, overrides *Overrides) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s", core.ErrNotFound, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	p.logger.Info("ingesting directory", "directory", dir, "files", len(paths))

	return p.IngestFiles(ctx, paths, overrides)
}

func (p *Pipeline) ingest(ctx context.Context, docs []core.Document, failures []*DocumentReport, overrides *Overrides) (*Report, error) {
	ch, err := p.chunkerFor(overrides)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, f := range failures {
		p.logger.Warn("document not loaded", "source", f.Source, "err", f.err)
		report.add(f)
	}

	// Chunk every document and collect the texts of all chunks so they can
	// be embedded together.
	var batch []*pending
	var texts []string
	reports := make([]*DocumentReport, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		dr := &DocumentReport{
			Source:   doc.Source,
			Filename: doc.Metadata[core.MetaFilename],
			Size:     documentSize(doc),
			Metadata: doc.Metadata,
		}
		reports = append(reports, dr)
		if err := core.ValidateDocument(doc); err != nil {
			dr.fail(err)
			continue
		}

		item := &pending{doc: doc, report: dr, offset: len(texts)}
		for chunk := range ch.Chunks(doc.Text) {
			item.records = append(item.records, p.newRecord(doc, chunk))
			texts = append(texts, chunk.Text)
		}
		batch = append(batch, item)
	}

	if len(texts) > 0 {
		p.logger.Info("embedding chunks", "documents", len(batch), "chunks", len(texts))
	}
	vectors, embedErr := p.embedder.Embed(ctx, texts, ai.RoleDocument)
	failed := failedIndices(len(texts), embedErr)

	for _, item := range batch {
		p.persist(ctx, item, vectors, failed, embedErr)
	}
	for _, dr := range reports {
		report.add(dr)
	}

	p.logger.Info("ingestion finished",
		"documents", report.DocumentsProcessed,
		"failed_documents", report.DocumentsFailed,
		"chunks", report.ChunksCreated,
		"failed_chunks", report.ChunksFailed)

	return report, nil
}

// persist upserts the embedded chunks of one document, removes stale chunks
// and updates the registry.
func (p *Pipeline) persist(ctx context.Context, item *pending, vectors [][]float32, failed map[int]bool, embedErr error) {
	dr := item.report
	source := item.doc.Source

	var ready []*core.Record
	var missing []core.ID
	for i, record := range item.records {
		idx := item.offset + i
		if failed[idx] {
			dr.FailedChunks = append(dr.FailedChunks, i)
			missing = append(missing, record.Id)
			continue
		}
		record.Vector = vectors[idx]
		ready = append(ready, record)
	}
	dr.ChunksFailed = len(dr.FailedChunks)

	if len(ready) == 0 {
		if embedErr != nil {
			dr.fail(embedErr)
		} else {
			dr.fail(fmt.Errorf("%w: no chunks produced", core.ErrEmptyContent))
		}
		p.logger.Error("document not stored", "source", source, "err", dr.err)
		return
	}

	if err := p.store.Upsert(ctx, ready...); err != nil {
		dr.ChunksFailed = len(item.records)
		dr.FailedChunks = allIndices(len(item.records))
		dr.fail(err)
		p.logger.Error("error storing chunks", "source", source, "err", err)
		return
	}
	dr.ChunksCreated = len(ready)

	// Chunks of a previous ingestion that this one did not rewrite must not
	// keep serving old text.
	stale := missing
	if prev, err := p.registry.GetDocument(ctx, source); err == nil {
		for i := len(item.records); i < prev.ChunkCount; i++ {
			stale = append(stale, core.ChunkID(source, i))
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		p.logger.Warn("error reading registry entry", "source", source, "err", err)
	}
	if len(stale) > 0 {
		if err := p.store.Delete(ctx, stale...); err != nil {
			p.logger.Warn("error deleting stale chunks", "source", source, "chunks", len(stale), "err", err)
		}
	}

	info := &core.DocumentInfo{
		Source:     source,
		Size:       dr.Size,
		ChunkCount: len(item.records),
		Metadata:   item.doc.Metadata,
	}
	if err := p.registry.PutDocument(ctx, info); err != nil {
		p.logger.Warn("error updating registry", "source", source, "err", err)
	}

	p.logger.Debug("document stored", "source", source, "chunks", dr.ChunksCreated, "failed_chunks", dr.ChunksFailed)
}

func (p *Pipeline) newRecord(doc *core.Document, chunk core.Chunk) *core.Record {
	id := core.ChunkID(doc.Source, chunk.Index)
	metadata := core.CloneMetadata(doc.Metadata)
	if _, ok := metadata[core.MetaSource]; !ok {
		metadata[core.MetaSource] = doc.Source
	}
	metadata[core.MetaChunkIndex] = strconv.Itoa(chunk.Index)
	metadata[core.MetaChunkStart] = strconv.Itoa(chunk.Start)
	metadata[core.MetaChunkEnd] = strconv.Itoa(chunk.End)
	metadata[core.MetaChunkSize] = strconv.Itoa(chunk.Len())
	metadata[core.MetaChunkID] = string(id)

	return &core.Record{
		Id:       id,
		Text:     chunk.Text,
		Metadata: metadata,
	}
}

// failedIndices returns the set of text indices without a vector.
func failedIndices(n int, err error) map[int]bool {
	failed := map[int]bool{}
	if err == nil {
		return failed
	}
	var embedErr *embedding.Error
	if errors.As(err, &embedErr) {
		for _, idx := range embedErr.Failed {
			failed[idx] = true
		}
		return failed
	}
	for i := range n {
		failed[i] = true
	}
	return failed
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func documentSize(doc *core.Document) int {
	if size, err := strconv.Atoi(doc.Metadata[core.MetaFileSize]); err == nil {
		return size
	}
	return len(doc.Text)
}

func failedDocument(source string, err error) *DocumentReport {
	dr := &DocumentReport{Source: source, Filename: filepath.Base(source)}
	dr.fail(err)
	return dr
}
