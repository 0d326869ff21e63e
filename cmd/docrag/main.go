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


package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/reembed"
	"github.com/poiesic/docrag/watch"
	"github.com/urfave/cli/v2"
)

// cliApp holds what the commands read and write, so tests can replace it.
type cliApp struct {
	stdout  io.Writer
	stderr  io.Writer
	lookup  config.LookupFunc
	options []docrag.Option
}

func main() {
	a := &cliApp{stdout: os.Stdout, stderr: os.Stderr, lookup: os.LookupEnv}
	if err := a.command().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func (a *cliApp) command() *cli.App {
	return &cli.App{
		Name:      "docrag",
		Usage:     "Financial document ingestion and retrieval",
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML configuration file (default $" + config.EnvConfigFile + ")",
			},
		},
		Before: a.setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: a.serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "Listen host (overrides SERVER_HOST)",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (overrides SERVER_PORT)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest files or directories",
				ArgsUsage: "<path>...",
				Action:    a.ingestCommand,
				Flags:     chunkFlags(),
			},
			{
				Name:      "query",
				Usage:     "Ask a question about the ingested documents",
				ArgsUsage: "<question>",
				Action:    a.queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "results",
						Aliases: []string{"n"},
						Usage:   "Number of sources to retrieve (default DEFAULT_N_RESULTS)",
					},
					&cli.StringSliceFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Metadata filter as key=value, repeatable",
					},
					&cli.BoolFlag{
						Name:  "no-answer",
						Usage: "Only retrieve sources, skip answer synthesis",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the response as JSON",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show collection statistics",
				Action: a.statsCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print statistics as JSON",
					},
				},
			},
			{
				Name:   "documents",
				Usage:  "List ingested documents",
				Action: a.documentsCommand,
			},
			{
				Name:   "reset",
				Usage:  "Delete every record and document of the collection",
				Action: a.resetCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the reset",
					},
				},
			},
			{
				Name:   "info",
				Usage:  "Print the effective configuration",
				Action: a.infoCommand,
			},
			{
				Name:   "setup",
				Usage:  "Create the store and check that the providers answer",
				Action: a.setupCommand,
			},
			{
				Name:      "watch",
				Usage:     "Ingest files as they appear in a directory",
				ArgsUsage: "<directory>",
				Action:    a.watchCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before changed files are ingested",
						Value: watch.DefaultDebounce,
					},
					&cli.BoolFlag{
						Name:  "initial-scan",
						Usage: "Ingest the files already in the directory",
						Value: true,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute every vector with the configured embedding model",
				Action: a.reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "Collection to read (default COLLECTION_NAME)",
					},
					&cli.StringFlag{
						Name:  "target",
						Usage: "Collection to write (default the source collection)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "continue-on-error",
						Usage: "Skip batches that fail instead of stopping",
					},
					&cli.BoolFlag{
						Name:  "no-normalize",
						Usage: "Store vectors as returned by the provider",
					},
				},
			},
		},
	}
}

func chunkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Chunk size in characters (default CHUNK_SIZE)",
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Chunk overlap in characters (default CHUNK_OVERLAP)",
		},
	}
}

func (a *cliApp) setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
