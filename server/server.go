package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/docrag"
)

const (
	// DefaultMaxUploadSize caps the body of an upload request.
	DefaultMaxUploadSize = 32 << 20

	shutdownTimeout = 30 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	service       *docrag.Service
	router        *http.ServeMux
	handler       http.Handler
	corsOrigins   []string
	maxUploadSize int64
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithCORSOrigins sets the origins allowed to call the API. "*" allows any origin.
// Default is the service configuration's CORS origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) error {
		s.corsOrigins = origins
		return nil
	}
}

// WithMaxUploadSize caps the size of an upload request in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("max upload size must be positive, got %d", n)
		}
		s.maxUploadSize = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server for service.
func New(service *docrag.Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}

	s := &Server{
		service:       service,
		router:        http.NewServeMux(),
		corsOrigins:   service.Config().Server.CORSOrigins,
		maxUploadSize: DefaultMaxUploadSize,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "http")

	s.setupRoutes()
	s.handler = requestID(s.logRequests(s.recoverPanics(cors(s.corsOrigins, s.router))))
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
	s.router.HandleFunc("POST /query", s.handleQuery)
	s.router.HandleFunc("POST /search", s.handleSearch)
	s.router.HandleFunc("POST /upload", s.handleUpload)
	s.router.HandleFunc("POST /ingest-directory", s.handleIngestDirectory)
	s.router.HandleFunc("GET /documents", s.handleListDocuments)
	s.router.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("DELETE /reset", s.handleReset)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, letting in-flight requests finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
