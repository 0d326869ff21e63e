package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/embedding"
	"github.com/poiesic/docrag/storage"
)

// Request is a natural-language query.
type Request struct {
	Query    string         `json:"query"`
	NResults int            `json:"n_results,omitempty"`
	Filter   storage.Filter `json:"filter,omitempty"`

	// Synthesize overrides the service default when set.
	Synthesize *bool `json:"synthesize,omitempty"`
}

// Source is one retrieved chunk.
type Source struct {
	ID       core.ID           `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance float32           `json:"distance"`

	// Score is the similarity for the collection's distance function; higher is closer.
	Score float32 `json:"score"`

	// KeywordMatch reports whether every significant query word appears in the text.
	KeywordMatch bool `json:"keyword_match"`
}

// Response is the answer to a Request.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Sources []Source `json:"sources"`

	// Degraded is set when synthesis was requested but failed.
	Degraded bool `json:"degraded"`
}

// Service retrieves chunks relevant to a query and optionally synthesizes an answer.
// It is safe for concurrent use.
type Service struct {
	store      storage.VectorStore
	embedder   *embedding.BatchEmbedder
	completer  ai.Completer
	distance   storage.Distance
	defaultN   int
	synthesize bool
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithDefaultResults sets the number of results used when a request leaves it at zero.
// Default is DefaultResults.
func WithDefaultResults(n int) Option {
	return func(s *Service) error {
		if n < 1 || n > MaxResults {
			return fmt.Errorf("%w: default n_results must be between 1 and %d, got %d",
				core.ErrInvalidConfiguration, MaxResults, n)
		}
		s.defaultN = n
		return nil
	}
}

// WithSynthesis sets whether answers are synthesized when a request does not say.
// Default is true when a completer is configured.
func WithSynthesis(enabled bool) Option {
	return func(s *Service) error {
		s.synthesize = enabled
		return nil
	}
}

// WithSynthesisTimeout bounds each completion call.
func WithSynthesisTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("%w: synthesis timeout must be positive", core.ErrInvalidConfiguration)
		}
		s.timeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a query service. completer may be nil, which disables synthesis.
func NewService(
	store storage.VectorStore,
	embedder *embedding.BatchEmbedder,
	completer ai.Completer,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Service{
		store:      store,
		embedder:   embedder,
		completer:  completer,
		distance:   storage.Cosine,
		defaultN:   DefaultResults,
		synthesize: completer != nil,
		timeout:    embedding.DefaultTimeout,
		logger:     slog.Default(),
	}

	if c, ok := store.(interface{ Schema() storage.Schema }); ok {
		s.distance = c.Schema().Distance
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "query")

	return s, nil
}

// SynthesisEnabled reports whether the service has a language model.
func (s *Service) SynthesisEnabled() bool {
	return s.completer != nil
}

// Query answers req.
func (s *Service) Query(ctx context.Context, req Request) (*Response, error) {
	return s.QueryWithMonitor(ctx, req, nil)
}

// QueryWithMonitor answers req, reporting each stage to monitor.
//
// Invalid requests fail with core.ErrInvalidInput. Embedding and store
// failures fail the query. Synthesis failures set Degraded and keep the sources.
func (s *Service) QueryWithMonitor(ctx context.Context, req Request, monitor Monitor) (*Response, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	question := strings.TrimSpace(req.Query)
	if question == "" {
		return nil, ErrEmptyQuery
	}
	n := req.NResults
	if n == 0 {
		n = s.defaultN
	}
	if n < 1 || n > MaxResults {
		return nil, fmt.Errorf("%w, got %d", ErrResultCount, n)
	}

	monitor.Start(req)

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(vector)

	matches, err := s.store.Search(ctx, vector, n, req.Filter)
	if err != nil {
		s.logger.Error("error searching vector store", "err", err)
		return nil, err
	}
	monitor.AfterSearch(matches)

	resp := &Response{
		Query:   req.Query,
		Sources: make([]Source, len(matches)),
	}
	matcher := newKeywordMatcher(question)
	for i, match := range matches {
		resp.Sources[i] = Source{
			ID:           match.Record.Id,
			Text:         match.Record.Text,
			Metadata:     match.Record.Metadata,
			Distance:     match.Distance,
			Score:        s.distance.Similarity(match.Distance),
			KeywordMatch: matcher.matches(match.Record.Text),
		}
	}

	synthesize := s.synthesize
	if req.Synthesize != nil {
		synthesize = *req.Synthesize
	}
	if synthesize && len(matches) > 0 {
		answer, err := s.synthesizeAnswer(ctx, question, matches)
		monitor.AfterSynthesis(answer, err)
		if err != nil {
			s.logger.Warn("answer synthesis failed, returning sources only", "err", err)
			resp.Degraded = true
		} else {
			resp.Answer = answer
		}
	}

	s.logger.Debug("query answered", "results", len(resp.Sources), "degraded", resp.Degraded)
	monitor.Finish(resp)
	return resp, nil
}

func (s *Service) synthesizeAnswer(ctx context.Context, question string, matches []core.Match) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("%w: no language model configured", core.ErrLLMSynthesis)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.completer.Complete(callCtx, buildPrompt(question, matches))
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrLLMSynthesis, err)
	}
	return answer, nil
}
