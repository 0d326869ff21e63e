package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testDim = 8

type testCLI struct {
	app    *cliApp
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	dir    string
}

// newTestCLI returns an app backed by a temporary store and a mock provider.
func newTestCLI(t *testing.T, env map[string]string) *testCLI {
	t.Helper()
	dir := t.TempDir()
	vars := map[string]string{
		"VECTOR_STORE_PATH":    filepath.Join(dir, "db"),
		"EMBEDDING_DIMENSIONS": "8",
		"LLM_PROVIDER":         "none",
	}
	for k, v := range env {
		vars[k] = v
	}

	tc := &testCLI{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, dir: dir}
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedderWithDimension(testDim), nil)
	tc.app = &cliApp{
		stdout: tc.stdout,
		stderr: tc.stderr,
		lookup: func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		},
		options: []docrag.Option{docrag.WithProvider(provider)},
	}
	return tc
}

func (tc *testCLI) run(args ...string) error {
	tc.stdout.Reset()
	return tc.app.command().Run(append([]string{"docrag"}, args...))
}

func (tc *testCLI) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(tc.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestQueryStats(t *testing.T) {
	tc := newTestCLI(t, nil)
	budget := tc.writeFile(t, "budget.txt", strings.Repeat("Fiscal year 2024 revenue rose. ", 50))
	bill := tc.writeFile(t, "bill.md", "House Bill 7 amends section 2.")

	require.NoError(t, tc.run("ingest", "--chunk-size", "600", "--chunk-overlap", "100", budget, bill))
	out := tc.stdout.String()
	assert.Contains(t, out, "OK    "+budget+": 4 chunks")
	assert.Contains(t, out, "Processed 2 documents with 5 chunks")

	require.NoError(t, tc.run("stats"))
	assert.Contains(t, tc.stdout.String(), "Records:     5")
	assert.Contains(t, tc.stdout.String(), "Documents:   2")
	assert.Contains(t, tc.stdout.String(), "LLM:         disabled")

	require.NoError(t, tc.run("query", "-n", "2", "what", "was", "revenue"))
	assert.Contains(t, tc.stdout.String(), "Found 2 sources")

	require.NoError(t, tc.run("query", "--filter", "filename=bill.md", "--json", "amendments"))
	assert.Contains(t, tc.stdout.String(), `"query": "amendments"`)
	assert.Contains(t, tc.stdout.String(), "House Bill 7")

	require.NoError(t, tc.run("documents"))
	assert.Contains(t, tc.stdout.String(), "2 documents")

	require.NoError(t, tc.run("reset", "--yes"))
	require.NoError(t, tc.run("stats", "--json"))
	assert.Contains(t, tc.stdout.String(), `"record_count": 0`)
}

func TestIngestZeroOverlap(t *testing.T) {
	tc := newTestCLI(t, nil)
	path := tc.writeFile(t, "budget.txt", strings.Repeat("x", 300))

	require.NoError(t, tc.run("ingest", "--chunk-size", "100", "--chunk-overlap", "0", path))
	assert.Contains(t, tc.stdout.String(), "OK    "+path+": 3 chunks")
}

func TestIngestDirectoryAndFailures(t *testing.T) {
	tc := newTestCLI(t, nil)
	inbox := filepath.Join(tc.dir, "inbox")
	require.NoError(t, os.Mkdir(inbox, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "a.csv"), []byte("item,amount\nroads,$10"), 0o644))

	require.NoError(t, tc.run("ingest", inbox))
	assert.Contains(t, tc.stdout.String(), "Processed 1 documents with 1 chunks")

	err := tc.run("ingest", filepath.Join(tc.dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 documents failed")
	assert.Contains(t, tc.stdout.String(), "FAIL")
}

func TestCommandValidation(t *testing.T) {
	tc := newTestCLI(t, nil)

	t.Run("ingest needs paths", func(t *testing.T) {
		err := tc.run("ingest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one")
	})

	t.Run("query needs a question", func(t *testing.T) {
		err := tc.run("query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "question")
	})

	t.Run("malformed filter", func(t *testing.T) {
		err := tc.run("query", "--filter", "nokey", "budget")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key=value")
	})

	t.Run("reset needs confirmation", func(t *testing.T) {
		err := tc.run("reset")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--yes")
	})

	t.Run("watch needs one directory", func(t *testing.T) {
		err := tc.run("watch")
		require.Error(t, err)
	})

	t.Run("reembed batch size", func(t *testing.T) {
		err := tc.run("reembed", "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size")
	})

	t.Run("invalid configuration", func(t *testing.T) {
		bad := newTestCLI(t, map[string]string{"CHUNK_SIZE": "10", "CHUNK_OVERLAP": "20"})
		err := bad.run("stats")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration")
	})
}

func TestInfo(t *testing.T) {
	tc := newTestCLI(t, map[string]string{"EMBEDDING_API_KEY": "sk-secret"})
	require.NoError(t, tc.run("info"))

	out := tc.stdout.String()
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "dimensions: 8")
	assert.Contains(t, out, "collection: financial_documents")
}

func TestInfoFromConfigFile(t *testing.T) {
	tc := newTestCLI(t, nil)
	path := tc.writeFile(t, "docrag.toml", "[store]\ncollection = \"budgets\"\n")

	require.NoError(t, tc.run("--config", path, "info"))
	assert.Contains(t, tc.stdout.String(), "collection: budgets")
}

func TestSetup(t *testing.T) {
	tc := newTestCLI(t, nil)
	require.NoError(t, tc.run("setup"))
	out := tc.stdout.String()
	assert.Contains(t, out, "Embedding provider openai (nomic-embed-text) OK")
	assert.Contains(t, out, "Setup complete")
	assert.NotContains(t, out, "LLM provider")
}

func TestReembed(t *testing.T) {
	tc := newTestCLI(t, nil)
	doc := tc.writeFile(t, "budget.txt", "Appropriations for fiscal year 2025.")
	require.NoError(t, tc.run("ingest", doc))

	require.NoError(t, tc.run("reembed", "--target", "financial_documents_v2", "--retry-delay", "0s"))
	assert.Contains(t, tc.stdout.String(), "Re-embedded 1 records (0 failed), copied 1 document entries")
	assert.Contains(t, tc.stderr.String(), "financial_documents -> financial_documents_v2")
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = parseFilter([]string{"doc_type=financial", " filename = a.txt "})
	require.NoError(t, err)
	assert.Equal(t, storage.Filter{"doc_type": "financial", "filename": "a.txt"}, f)

	_, err = parseFilter([]string{"=x"})
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n b\t\tc", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}

func TestSetupLogger(t *testing.T) {
	a := &cliApp{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}

	newApp := func(check func(c *cli.Context) error) *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: a.setupLogger,
			Action: check,
		}
	}
	noop := func(c *cli.Context) error { return nil }

	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				err := newApp(func(c *cli.Context) error {
					assert.True(t, slog.Default().Enabled(c.Context, tc.expected))
					if tc.expected > slog.LevelDebug {
						assert.False(t, slog.Default().Enabled(c.Context, tc.expected-4))
					}
					return nil
				}).Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				require.NoError(t, newApp(noop).Run([]string{"test", "--log-level", tc}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp(noop).Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		err := newApp(func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}).Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}

func TestCommandsRegistered(t *testing.T) {
	app := (&cliApp{}).command()
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{
		"serve", "ingest", "query", "stats", "documents", "reset", "info", "setup", "watch", "reembed",
	}, names)
}
