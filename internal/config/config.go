// Package config loads agentvec settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/viant/agentvec/collection"
	"github.com/viant/agentvec/vector"
)

// Backends selectable with AGENTVEC_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMilvus = "milvus"
	BackendMemory = "memory"
)

// Encoders selectable with ENCODER_KIND.
const (
	EncoderHashing = "hashing"
	EncoderHTTP    = "http"
)

// Config is the complete configuration.
type Config struct {
	Service ServiceConfig
	Milvus  MilvusConfig
	SQLite  SQLiteConfig
	Encoder EncoderConfig
	Index   IndexConfig
	Retry   RetryConfig
}

// ServiceConfig is read from AGENTVEC_*.
type ServiceConfig struct {
	Backend    string `default:"sqlite"`
	Collection string `default:"agents"`
	LogLevel   string `split_words:"true" default:"info"`
}

// MilvusConfig is read from MILVUS_URI and MILVUS_TOKEN.
type MilvusConfig struct {
	URI   string
	Token string
}

// SQLiteConfig is read from SQLITE_PATH.
type SQLiteConfig struct {
	Path string `default:"agentvec.sqlite"`
}

// EncoderConfig is read from ENCODER_*.
type EncoderConfig struct {
	Kind  string `default:"hashing"`
	URL   string
	Model string `default:"all-MiniLM-L6-v2"`
	Dim   int    `default:"384"`

	// Retries bounds extra attempts on transient HTTP failures.
	Retries uint64 `default:"2"`
}

// IndexConfig is read from INDEX_*.
type IndexConfig struct {
	Type   string `default:"IVF_FLAT"`
	Metric string `default:"L2"`
	NList  int    `default:"128"`
	NProbe int    `default:"10"`
}

// RetryConfig is read from RETRY_*.
type RetryConfig struct {
	Timeout time.Duration `default:"30s"`
	Max     uint64        `default:"3"`
	Backoff time.Duration `default:"500ms"`
}

// Load reads .env candidates, then the environment, and validates the
// result.
func Load() (*Config, error) {
	LoadEnvFileCandidates()
	return FromEnv()
}

// FromEnv reads the environment without consulting .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	groups := []struct {
		prefix string
		spec   interface{}
	}{
		{"AGENTVEC", &cfg.Service},
		{"MILVUS", &cfg.Milvus},
		{"SQLITE", &cfg.SQLite},
		{"ENCODER", &cfg.Encoder},
		{"INDEX", &cfg.Index},
		{"RETRY", &cfg.Retry},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.spec); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and cross-field requirements.
func (c *Config) Validate() error {
	c.Service.Backend = strings.ToLower(strings.TrimSpace(c.Service.Backend))
	switch c.Service.Backend {
	case BackendSQLite, BackendMemory:
	case BackendMilvus:
		if c.Milvus.URI == "" {
			return fmt.Errorf("config: MILVUS_URI is required for the milvus backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Service.Backend)
	}
	if err := vector.ValidateCollectionName(c.Service.Collection); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Encoder.Kind = strings.ToLower(strings.TrimSpace(c.Encoder.Kind))
	switch c.Encoder.Kind {
	case EncoderHashing:
	case EncoderHTTP:
		if c.Encoder.URL == "" {
			return fmt.Errorf("config: ENCODER_URL is required for the http encoder")
		}
	default:
		return fmt.Errorf("config: unknown encoder %q", c.Encoder.Kind)
	}
	if c.Encoder.Dim <= 0 {
		return fmt.Errorf("config: ENCODER_DIM must be positive, got %d", c.Encoder.Dim)
	}
	if _, err := c.IndexParams(); err != nil {
		return err
	}
	if _, err := c.SearchParams(); err != nil {
		return err
	}
	return nil
}

// IndexParams returns the configured index parameters.
func (c *Config) IndexParams() (vector.IndexParams, error) {
	t, err := vector.ParseIndexType(c.Index.Type)
	if err != nil {
		return vector.IndexParams{}, fmt.Errorf("config: %w", err)
	}
	m, err := vector.ParseMetric(c.Index.Metric)
	if err != nil {
		return vector.IndexParams{}, fmt.Errorf("config: %w", err)
	}
	p := vector.IndexParams{Type: t, Metric: m, NList: c.Index.NList}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

// SearchParams returns the configured query parameters.
func (c *Config) SearchParams() (vector.SearchParams, error) {
	m, err := vector.ParseMetric(c.Index.Metric)
	if err != nil {
		return vector.SearchParams{}, fmt.Errorf("config: %w", err)
	}
	p := vector.SearchParams{Metric: m, NProbe: c.Index.NProbe}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

// RetryPolicy returns the configured per-call timeout and retry bounds.
func (c *Config) RetryPolicy() collection.RetryPolicy {
	return collection.RetryPolicy{Timeout: c.Retry.Timeout, MaxRetries: c.Retry.Max, Backoff: c.Retry.Backoff}
}
