package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/ingestion"
)

// DefaultDebounce is how long the watcher waits after the last change before ingesting.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrIngesterRequired is returned when no ingester is provided.
	ErrIngesterRequired = errors.New("ingester required")

	// ErrWatcherClosed is returned when Run is called on a closed watcher.
	ErrWatcherClosed = errors.New("watcher closed")
)

// Ingester stores files. *ingestion.Pipeline implements it.
type Ingester interface {
	IngestFiles(ctx context.Context, paths []string, overrides *ingestion.Overrides) (*ingestion.Report, error)
}

// Watcher ingests files as they are created or modified in a directory.
type Watcher struct {
	dir         string
	ingester    Ingester
	debounce    time.Duration
	accept      func(name string) bool
	initialScan bool
	onReport    func(*ingestion.Report)
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithDebounce sets the quiet period before changed files are ingested.
// Default is DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) error {
		if d < 0 {
			return fmt.Errorf("%w: debounce must not be negative", core.ErrInvalidConfiguration)
		}
		w.debounce = d
		return nil
	}
}

// WithFilter restricts which file names are ingested.
// Default accepts every non-hidden file.
func WithFilter(accept func(name string) bool) Option {
	return func(w *Watcher) error {
		if accept != nil {
			w.accept = accept
		}
		return nil
	}
}

// WithInitialScan ingests the files already present when Run starts.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) error {
		w.initialScan = enabled
		return nil
	}
}

// WithReportHandler sets a callback receiving every ingestion report.
func WithReportHandler(fn func(*ingestion.Report)) Option {
	return func(w *Watcher) error {
		w.onReport = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// New creates a watcher for dir.
func New(dir string, ingester Ingester, opts ...Option) (*Watcher, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}

	w := &Watcher{
		dir:      dir,
		ingester: ingester,
		debounce: DefaultDebounce,
		accept:   func(string) bool { return true },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	w.logger = w.logger.With("component", "watch", "directory", dir)

	return w, nil
}

// Run watches the directory until ctx is done or Close is called.
// Ingestion errors are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.cancel = cancel
	w.mu.Unlock()

	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("%w: directory %s: %w", core.ErrNotFound, w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ingestion.ErrNotDirectory, w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory for new documents")

	if w.initialScan {
		if paths := w.existingFiles(); len(paths) > 0 {
			w.ingest(ctx, paths)
		}
	}

	pending := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopped watching directory")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path, ok := w.handleEvent(event)
			if !ok {
				continue
			}
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			clear(pending)
			slices.Sort(paths)
			w.ingest(ctx, paths)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

// Close stops a running Run and prevents further calls to it.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	return nil
}

// handleEvent returns the path to ingest for event, if any.
// Only creations and writes of regular, visible, accepted files count.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !w.accept(name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

func (w *Watcher) existingFiles() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("error listing directory", "err", err)
		return nil
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || !w.accept(name) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, name))
	}
	return paths
}

func (w *Watcher) ingest(ctx context.Context, paths []string) {
	w.logger.Info("ingesting changed files", "files", len(paths))
	report, err := w.ingester.IngestFiles(ctx, paths, nil)
	if err != nil {
		w.logger.Error("error ingesting files", "files", len(paths), "err", err)
		return
	}
	for _, failure := range report.Errors() {
		w.logger.Warn("document not ingested", "err", failure)
	}
	if w.onReport != nil {
		w.onReport(report)
	}
}
