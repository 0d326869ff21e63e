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


package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/chunker"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/embedding"
	"github.com/poiesic/docrag/ingestion"
	"github.com/poiesic/docrag/query"
	"github.com/poiesic/docrag/storage"
)

// Duration is a time.Duration read from configuration files as "1.5s" or as
// a plain number of seconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// Embedding configures the embedding provider and the batch embedder.
type Embedding struct {
	Provider      string   `yaml:"provider" toml:"provider"`
	Host          string   `yaml:"host" toml:"host"`
	APIKey        string   `yaml:"api_key" toml:"api_key"`
	Model         string   `yaml:"model" toml:"model"`
	Dimensions    int      `yaml:"dimensions" toml:"dimensions"`
	BatchSize     int      `yaml:"batch_size" toml:"batch_size"`
	MaxWorkers    int      `yaml:"max_workers" toml:"max_workers"`
	MaxRetries    int      `yaml:"max_retries" toml:"max_retries"`
	RetryDelay    Duration `yaml:"retry_delay" toml:"retry_delay"`
	RetryMaxDelay Duration `yaml:"retry_max_delay" toml:"retry_max_delay"`
	Timeout       Duration `yaml:"request_timeout" toml:"request_timeout"`
	RateLimit     float64  `yaml:"rate_limit" toml:"rate_limit"`
}

// LLM configures answer synthesis. Provider "none" disables it.
type LLM struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	Host        string  `yaml:"host" toml:"host"`
	APIKey      string  `yaml:"api_key" toml:"api_key"`
	Model       string  `yaml:"model" toml:"model"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
}

// Chunking configures the default chunk size and overlap in characters.
type Chunking struct {
	Size    int `yaml:"size" toml:"size"`
	Overlap int `yaml:"overlap" toml:"overlap"`
}

// Query configures retrieval.
type Query struct {
	DefaultResults int `yaml:"default_n_results" toml:"default_n_results"`
}

// Store configures the vector store.
type Store struct {
	Path       string `yaml:"path" toml:"path"`
	InMemory   bool   `yaml:"in_memory" toml:"in_memory"`
	Collection string `yaml:"collection" toml:"collection"`
	Distance   string `yaml:"distance" toml:"distance"`
}

// Documents configures document loading.
type Documents struct {
	DocType   string   `yaml:"doc_type" toml:"doc_type"`
	FileTypes []string `yaml:"file_types" toml:"file_types"`
}

// Server configures the HTTP API.
type Server struct {
	Host        string   `yaml:"host" toml:"host"`
	Port        int      `yaml:"port" toml:"port"`
	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`
}

// Config is the complete, immutable service configuration.
// Build it with Load and pass it to constructors.
type Config struct {
	Embedding Embedding `yaml:"embedding" toml:"embedding"`
	LLM       LLM       `yaml:"llm" toml:"llm"`
	Chunking  Chunking  `yaml:"chunking" toml:"chunking"`
	Query     Query     `yaml:"query" toml:"query"`
	Store     Store     `yaml:"store" toml:"store"`
	Documents Documents `yaml:"documents" toml:"documents"`
	Server    Server    `yaml:"server" toml:"server"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Embedding: Embedding{
			Provider:      aiDefaults.EmbeddingProvider,
			Host:          aiDefaults.EmbeddingHost,
			Model:         aiDefaults.EmbeddingModel,
			Dimensions:    aiDefaults.EmbeddingDimensions,
			BatchSize:     embedding.DefaultBatchSize,
			MaxWorkers:    4,
			MaxRetries:    embedding.DefaultMaxAttempts,
			RetryDelay:    Duration(embedding.DefaultBaseDelay),
			RetryMaxDelay: Duration(embedding.DefaultMaxDelay),
			Timeout:       Duration(embedding.DefaultTimeout),
		},
		LLM: LLM{
			Provider:    aiDefaults.LLMProvider,
			Host:        aiDefaults.LLMHost,
			Model:       aiDefaults.LLMModel,
			Temperature: aiDefaults.Temperature,
			MaxTokens:   aiDefaults.MaxTokens,
		},
		Chunking: Chunking{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultChunkOverlap,
		},
		Query: Query{
			DefaultResults: query.DefaultResults,
		},
		Store: Store{
			Path:       "./data/docrag.db",
			Collection: "financial_documents",
			Distance:   string(storage.Cosine),
		},
		Documents: Documents{
			DocType:   ingestion.DocTypeFinancial,
			FileTypes: append([]string(nil), ingestion.DefaultFileTypes...),
		},
		Server: Server{
			Host:        "0.0.0.0",
			Port:        8000,
			CORSOrigins: []string{"*"},
		},
	}
}

// AIConfig returns the provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return &ai.Config{
		EmbeddingProvider:   c.Embedding.Provider,
		EmbeddingHost:       c.Embedding.Host,
		EmbeddingAPIKey:     c.Embedding.APIKey,
		EmbeddingModel:      c.Embedding.Model,
		EmbeddingDimensions: c.Embedding.Dimensions,
		LLMProvider:         c.LLM.Provider,
		LLMHost:             c.LLM.Host,
		LLMAPIKey:           c.LLM.APIKey,
		LLMModel:            c.LLM.Model,
		Temperature:         c.LLM.Temperature,
		MaxTokens:           c.LLM.MaxTokens,
	}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Redacted returns a copy of c with API keys masked, suitable for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Embedding.APIKey != "" {
		out.Embedding.APIKey = "***"
	}
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "***"
	}
	return &out
}

// Validate checks every section and normalizes provider names and hosts.
// Errors wrap core.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	aiCfg := c.AIConfig()
	if err := aiCfg.Validate(); err != nil {
		return err
	}
	c.Embedding.Provider, c.Embedding.Host = aiCfg.EmbeddingProvider, aiCfg.EmbeddingHost
	c.LLM.Provider, c.LLM.Host = aiCfg.LLMProvider, aiCfg.LLMHost

	if _, err := chunker.New(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		return err
	}

	e := c.Embedding
	switch {
	case e.BatchSize < 1:
		return invalid("EMBEDDING_BATCH_SIZE must be positive, got %d", e.BatchSize)
	case e.MaxWorkers < 1:
		return invalid("MAX_WORKERS must be positive, got %d", e.MaxWorkers)
	case e.MaxRetries < 1:
		return invalid("MAX_RETRIES must be positive, got %d", e.MaxRetries)
	case e.RetryDelay < 0 || e.RetryMaxDelay < 0:
		return invalid("retry delays must not be negative")
	case e.Timeout <= 0:
		return invalid("REQUEST_TIMEOUT must be positive")
	case e.RateLimit < 0:
		return invalid("EMBEDDING_RATE_LIMIT must not be negative")
	}

	if n := c.Query.DefaultResults; n < 1 || n > query.MaxResults {
		return invalid("DEFAULT_N_RESULTS must be between 1 and %d, got %d", query.MaxResults, n)
	}

	distance, err := storage.ParseDistance(c.Store.Distance)
	if err != nil {
		return err
	}
	c.Store.Distance = string(distance)
	if c.Store.Collection == "" || strings.Contains(c.Store.Collection, ":") {
		return invalid("invalid COLLECTION_NAME %q", c.Store.Collection)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return invalid("VECTOR_STORE_PATH is required")
	}

	switch c.Documents.DocType {
	case ingestion.DocTypeFinancial, ingestion.DocTypeLegislative, ingestion.DocTypeGeneral:
	default:
		return invalid("unknown DOC_TYPE %q", c.Documents.DocType)
	}
	if len(c.Documents.FileTypes) == 0 {
		return invalid("SUPPORTED_FILE_TYPES must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
