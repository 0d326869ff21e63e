package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/docrag/core"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment key holding the configuration file path.
const EnvConfigFile = "DOCRAG_CONFIG"

// LookupFunc reads one environment key. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from defaults, then the file at path (or the
// file named by DOCRAG_CONFIG when path is empty), then environment keys read
// through lookup. The result is validated.
func Load(lookup LookupFunc, path string) (*Config, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes a YAML or TOML file, chosen by extension, over c.
// Keys missing from the file keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading config file: %w", core.ErrInvalidConfiguration, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: parsing %s: %w", core.ErrInvalidConfiguration, path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("%w: parsing %s: %w", core.ErrInvalidConfiguration, path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config file type %q", core.ErrInvalidConfiguration, ext)
	}
	return nil
}

// applyEnv overrides c with every environment key that is set.
func (c *Config) applyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("EMBEDDING_PROVIDER", &c.Embedding.Provider)
	e.str("EMBEDDING_HOST", &c.Embedding.Host)
	e.str("EMBEDDING_API_KEY", &c.Embedding.APIKey)
	e.str("EMBEDDING_MODEL", &c.Embedding.Model)
	e.int("EMBEDDING_DIMENSIONS", &c.Embedding.Dimensions)
	e.int("EMBEDDING_BATCH_SIZE", &c.Embedding.BatchSize)
	e.int("MAX_WORKERS", &c.Embedding.MaxWorkers)
	e.int("MAX_RETRIES", &c.Embedding.MaxRetries)
	e.duration("RETRY_DELAY", &c.Embedding.RetryDelay)
	e.duration("RETRY_MAX_DELAY", &c.Embedding.RetryMaxDelay)
	e.duration("REQUEST_TIMEOUT", &c.Embedding.Timeout)
	e.float("EMBEDDING_RATE_LIMIT", &c.Embedding.RateLimit)

	e.str("LLM_PROVIDER", &c.LLM.Provider)
	e.str("LLM_HOST", &c.LLM.Host)
	e.str("LLM_API_KEY", &c.LLM.APIKey)
	e.str("LLM_MODEL", &c.LLM.Model)
	e.float("LLM_TEMPERATURE", &c.LLM.Temperature)
	e.int("LLM_MAX_TOKENS", &c.LLM.MaxTokens)

	e.int("CHUNK_SIZE", &c.Chunking.Size)
	e.int("CHUNK_OVERLAP", &c.Chunking.Overlap)
	e.int("DEFAULT_N_RESULTS", &c.Query.DefaultResults)

	e.str("VECTOR_STORE_PATH", &c.Store.Path)
	e.str("COLLECTION_NAME", &c.Store.Collection)
	e.str("DISTANCE_FUNCTION", &c.Store.Distance)

	e.str("DOC_TYPE", &c.Documents.DocType)
	e.list("SUPPORTED_FILE_TYPES", &c.Documents.FileTypes)

	e.str("SERVER_HOST", &c.Server.Host)
	e.int("SERVER_PORT", &c.Server.Port)
	e.list("CORS_ORIGINS", &c.Server.CORSOrigins)

	return e.err
}

// envReader assigns environment values and keeps the first parse error.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key, value string, err error) {
	e.err = fmt.Errorf("%w: %s=%q: %w", core.ErrInvalidConfiguration, key, value, err)
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) duration(key string, dst *Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := parseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = Duration(d)
}

// list reads a comma separated value. Empty items are dropped.
func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}
