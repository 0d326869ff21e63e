package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/ingestion"
	"github.com/poiesic/docrag/query"
	"github.com/poiesic/docrag/reembed"
	"github.com/poiesic/docrag/server"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/watch"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func (a *cliApp) loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(a.lookup, c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (a *cliApp) openService(c *cli.Context) (*docrag.Service, error) {
	cfg, err := a.loadConfig(c)
	if err != nil {
		return nil, err
	}
	svc, err := docrag.Open(cfg, a.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func (a *cliApp) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *cliApp) serveCommand(c *cli.Context) error {
	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	cfg := svc.Config()
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	srv, err := server.New(svc)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Addr())
}

// chunkOverrides returns the chunking flags given on the command line, or nil.
func chunkOverrides(c *cli.Context) *ingestion.Overrides {
	var ov ingestion.Overrides
	if c.IsSet("chunk-size") {
		size := c.Int("chunk-size")
		ov.ChunkSize = &size
	}
	if c.IsSet("chunk-overlap") {
		overlap := c.Int("chunk-overlap")
		ov.ChunkOverlap = &overlap
	}
	if ov.IsZero() {
		return nil
	}
	return &ov
}

func (a *cliApp) ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file or directory is required")
	}

	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signalContext(c)
	defer stop()

	overrides := chunkOverrides(c)
	pipeline := svc.Pipeline()

	var files []string
	var reports []*ingestion.Report
	for _, path := range c.Args().Slice() {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			report, err := pipeline.IngestDirectory(ctx, path, overrides)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", path, err)
			}
			reports = append(reports, report)
			continue
		}
		files = append(files, path)
	}
	if len(files) > 0 {
		report, err := pipeline.IngestFiles(ctx, files, overrides)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}

	failed := 0
	for _, report := range reports {
		a.printReport(report)
		failed += report.DocumentsFailed
	}
	if failed > 0 {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}

func (a *cliApp) printReport(report *ingestion.Report) {
	for _, d := range report.Documents {
		switch {
		case d.Failed():
			fmt.Fprintf(a.stdout, "FAIL  %s: %s\n", d.Source, d.Error)
		case d.ChunksFailed > 0:
			fmt.Fprintf(a.stdout, "PART  %s: %d chunks stored, chunks %v failed\n", d.Source, d.ChunksCreated, d.FailedChunks)
		default:
			fmt.Fprintf(a.stdout, "OK    %s: %d chunks\n", d.Source, d.ChunksCreated)
		}
	}
	fmt.Fprintln(a.stdout, report.Message())
}

// parseFilter turns key=value pairs into a metadata filter.
func parseFilter(pairs []string) (storage.Filter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := storage.Filter{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", pair)
		}
		filter[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return filter, nil
}

func (a *cliApp) queryCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}
	filter, err := parseFilter(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	req := query.Request{
		Query:    question,
		NResults: c.Int("results"),
		Filter:   filter,
	}
	if c.Bool("no-answer") {
		off := false
		req.Synthesize = &off
	}

	ctx, stop := signalContext(c)
	defer stop()
	resp, err := svc.Query().Query(ctx, req)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return a.printJSON(resp)
	}

	if resp.Answer != "" {
		fmt.Fprintf(a.stdout, "%s\n\n", resp.Answer)
	}
	if resp.Degraded {
		fmt.Fprintln(a.stdout, "(answer synthesis failed, showing sources only)")
	}
	fmt.Fprintf(a.stdout, "Found %d sources\n", len(resp.Sources))
	for i, src := range resp.Sources {
		fmt.Fprintf(a.stdout, "[%d] %s #%s (score %.3f)\n", i+1,
			src.Metadata[core.MetaFilename], src.Metadata[core.MetaChunkIndex], src.Score)
		fmt.Fprintf(a.stdout, "    %s\n", preview(src.Text, 160))
	}
	return nil
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func (a *cliApp) statsCommand(c *cli.Context) error {
	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Stats(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return a.printJSON(stats)
	}

	fmt.Fprintf(a.stdout, "Collection:  %s\n", stats.Collection)
	fmt.Fprintf(a.stdout, "Records:     %d\n", stats.Records)
	fmt.Fprintf(a.stdout, "Documents:   %d\n", stats.Documents)
	fmt.Fprintf(a.stdout, "Distance:    %s\n", stats.Distance)
	fmt.Fprintf(a.stdout, "Embeddings:  %s/%s (%d dimensions)\n",
		stats.EmbeddingProvider, stats.EmbeddingModel, stats.EmbeddingDimensions)
	if stats.Synthesis {
		fmt.Fprintf(a.stdout, "LLM:         %s\n", stats.LLMModel)
	} else {
		fmt.Fprintln(a.stdout, "LLM:         disabled")
	}
	return nil
}

func (a *cliApp) documentsCommand(c *cli.Context) error {
	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	docs, err := svc.Collection().ListDocuments(c.Context)
	if err != nil {
		return err
	}
	for _, d := range docs {
		fmt.Fprintf(a.stdout, "%s\t%d bytes\t%d chunks\t%s\n",
			d.Source, d.Size, d.ChunkCount, d.IngestedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(a.stdout, "%d documents\n", len(docs))
	return nil
}

func (a *cliApp) resetCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("reset deletes every record of the collection; pass --yes to confirm")
	}

	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Collection().Reset(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Collection %s reset successfully\n", svc.Config().Store.Collection)
	return nil
}

func (a *cliApp) infoCommand(c *cli.Context) error {
	cfg, err := a.loadConfig(c)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}

func (a *cliApp) setupCommand(c *cli.Context) error {
	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	cfg := svc.Config()
	if cfg.Store.InMemory {
		fmt.Fprintln(a.stdout, "Vector store: in memory")
	} else {
		fmt.Fprintf(a.stdout, "Vector store: %s\n", cfg.Store.Path)
	}
	fmt.Fprintf(a.stdout, "Collection:   %s (%d dimensions, %s)\n",
		cfg.Store.Collection, cfg.Embedding.Dimensions, cfg.Store.Distance)

	if err := svc.CheckProviders(c.Context); err != nil {
		return fmt.Errorf("provider check failed: %w", err)
	}
	fmt.Fprintf(a.stdout, "Embedding provider %s (%s) OK\n", cfg.Embedding.Provider, cfg.Embedding.Model)
	if svc.Query().SynthesisEnabled() {
		fmt.Fprintf(a.stdout, "LLM provider %s (%s) OK\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintln(a.stdout, "Setup complete")
	return nil
}

func (a *cliApp) watchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one directory is required")
	}

	svc, err := a.openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	pipeline := svc.Pipeline()
	w, err := watch.New(c.Args().First(), pipeline,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithInitialScan(c.Bool("initial-scan")),
		watch.WithFilter(pipeline.Loader().Supports),
		watch.WithReportHandler(a.printReport),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signalContext(c)
	defer stop()
	fmt.Fprintf(a.stdout, "Watching %s (Ctrl-C to stop)\n", c.Args().First())
	return w.Run(ctx)
}

func (a *cliApp) reembedCommand(c *cli.Context) error {
	cfg, err := a.loadConfig(c)
	if err != nil {
		return err
	}

	rcfg := &reembed.Config{
		BatchSize:       c.Int("batch-size"),
		ReportInterval:  c.Int("report-interval"),
		MaxRetries:      c.Int("max-retries"),
		RetryDelay:      c.Duration("retry-delay"),
		Normalize:       !c.Bool("no-normalize"),
		ContinueOnError: c.Bool("continue-on-error"),
	}
	if rcfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rcfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if rcfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	source := c.String("source")
	if source == "" {
		source = cfg.Store.Collection
	}
	target := c.String("target")
	if target == "" {
		target = source
	}

	fmt.Fprintf(a.stderr, "Database: %s\n", cfg.Store.Path)
	fmt.Fprintf(a.stderr, "Collections: %s -> %s\n", source, target)
	fmt.Fprintf(a.stderr, "Embedding model: %s (%d dimensions)\n", cfg.Embedding.Model, cfg.Embedding.Dimensions)
	fmt.Fprintln(a.stderr)

	ctx, stop := signalContext(c)
	defer stop()
	result, err := docrag.Reembed(ctx, cfg, source, target, rcfg, a.stderr, a.options...)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "Re-embedded %d records (%d failed), copied %d document entries\n",
		result.Records, result.Failed, result.Documents)
	return nil
}
