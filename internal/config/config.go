// Package config loads and validates the ephemeris configuration.
//
// Configuration is layered:
//  1. Built-in defaults (Default)
//  2. YAML file (ephemeris.yaml in the working directory or an explicit path)
//  3. Environment variables (EPHEMERIS_*) - highest priority
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = "ephemeris.yaml"

// Config represents the complete ephemeris configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Vector    VectorConfig    `yaml:"vector" json:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Durable   DurableConfig   `yaml:"durable" json:"durable"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Corpus    CorpusConfig    `yaml:"corpus" json:"corpus"`
	Interp    InterpConfig    `yaml:"interp" json:"interp"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// SearchConfig configures lexical scoring and fusion.
type SearchConfig struct {
	// K1 is the BM25 term frequency saturation parameter.
	K1 float64 `yaml:"k1" json:"k1"`

	// B is the BM25 length normalization parameter.
	B float64 `yaml:"b" json:"b"`

	// RRFConstant is the RRF fusion smoothing parameter (k).
	// Default: 60 (industry standard used by Azure AI Search, OpenSearch).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// Alpha is the dense weight for weighted fusion (0.0-1.0).
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// MinScore filters lexical results below this score.
	MinScore float64 `yaml:"min_score" json:"min_score"`

	// MaxResults caps the number of fused results returned.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// VectorConfig configures the dense index adapter.
type VectorConfig struct {
	// Path is the collection file location. Empty means in-memory.
	Path string `yaml:"path" json:"path"`

	// Collection is the logical collection name.
	Collection string `yaml:"collection" json:"collection"`

	// Dimensions is the vector dimension.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// Metric is the distance metric: "cos" (cosine) or "l2" (euclidean).
	Metric string `yaml:"metric" json:"metric"`

	// M is HNSW max connections per layer.
	M int `yaml:"m" json:"m"`

	// EfSearch is HNSW query-time search width.
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" json:"provider"` // "ollama" or "static"
	Model      string `yaml:"model" json:"model"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// DurableConfig configures the durable interpretation store.
type DurableConfig struct {
	// Path is the sqlite database location. Empty means in-memory.
	Path string `yaml:"path" json:"path"`
}

// CacheConfig configures the shared interpretation cache.
type CacheConfig struct {
	// Addr is the redis address. Empty disables the shared tier.
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
}

// CorpusConfig configures reference document ingestion.
type CorpusConfig struct {
	// Dir is the directory holding reference document JSON files.
	Dir string `yaml:"dir" json:"dir"`

	// Watch enables re-ingestion when files under Dir change.
	Watch bool `yaml:"watch" json:"watch"`

	// WatchDebounce coalesces bursts of file events.
	WatchDebounce time.Duration `yaml:"watch_debounce" json:"watch_debounce"`
}

// InterpConfig configures interpretation generation and orchestration.
type InterpConfig struct {
	// Model is the generator model identifier recorded on every result.
	Model string `yaml:"model" json:"model"`

	// ContentVersion is the process-global interpretation content version.
	// Bumping it marks every existing durable record outdated.
	ContentVersion string `yaml:"content_version" json:"content_version"`

	// Language is the default interpretation language (BCP 47).
	Language string `yaml:"language" json:"language"`

	// Workers caps concurrent per-subject tasks. 0 means NumCPU*4.
	Workers int `yaml:"workers" json:"workers"`

	// BackfillQueueSize bounds the shared-to-durable backfill queue.
	BackfillQueueSize int `yaml:"backfill_queue_size" json:"backfill_queue_size"`

	// BackfillWorkers is the number of backfill worker goroutines.
	BackfillWorkers int `yaml:"backfill_workers" json:"backfill_workers"`

	// ContextLimit is how many reference documents generation retrieves.
	ContextLimit int `yaml:"context_limit" json:"context_limit"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			K1:          1.2,
			B:           0.75,
			RRFConstant: 60,
			Alpha:       0.6,
			MinScore:    0.0,
			MaxResults:  10,
		},
		Vector: VectorConfig{
			Collection: "reference_docs",
			Dimensions: 768,
			Metric:     "cos",
			M:          16,
			EfSearch:   32,
		},
		Embedding: EmbeddingConfig{
			Provider:   "static",
			Model:      "static-256",
			OllamaHost: "http://localhost:11434",
			CacheSize:  1000,
		},
		Cache: CacheConfig{
			TTL:    30 * 24 * time.Hour,
			Prefix: "interp:",
		},
		Corpus: CorpusConfig{
			WatchDebounce: 500 * time.Millisecond,
		},
		Interp: InterpConfig{
			Model:             "interp-7b",
			ContentVersion:    "v1",
			Language:          "en",
			Workers:           runtime.NumCPU() * 4,
			BackfillQueueSize: 256,
			BackfillWorkers:   2,
			ContextLimit:      5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given path, falling back to defaults
// when path is empty and no ephemeris.yaml exists. Environment variables
// are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigName); err == nil {
			path = DefaultConfigName
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config as YAML to the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Search.K1 <= 0 {
		return fmt.Errorf("search.k1 must be positive, got %v", c.Search.K1)
	}
	if c.Search.B < 0 || c.Search.B > 1 {
		return fmt.Errorf("search.b must be in [0,1], got %v", c.Search.B)
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("search.alpha must be in [0,1], got %v", c.Search.Alpha)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Vector.Dimensions <= 0 {
		return fmt.Errorf("vector.dimensions must be positive, got %d", c.Vector.Dimensions)
	}
	switch c.Vector.Metric {
	case "cos", "l2":
	default:
		return fmt.Errorf("vector.metric must be cos or l2, got %q", c.Vector.Metric)
	}
	if c.Interp.ContentVersion == "" {
		return fmt.Errorf("interp.content_version must not be empty")
	}
	if c.Interp.Model == "" {
		return fmt.Errorf("interp.model must not be empty")
	}
	if c.Interp.Workers <= 0 {
		c.Interp.Workers = runtime.NumCPU() * 4
	}
	return nil
}

// applyEnvOverrides applies EPHEMERIS_* environment overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EPHEMERIS_REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("EPHEMERIS_DURABLE_PATH"); v != "" {
		cfg.Durable.Path = v
	}
	if v := os.Getenv("EPHEMERIS_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("EPHEMERIS_CONTENT_VERSION"); v != "" {
		cfg.Interp.ContentVersion = v
	}
	if v := os.Getenv("EPHEMERIS_MODEL"); v != "" {
		cfg.Interp.Model = v
	}
	if v := os.Getenv("EPHEMERIS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EPHEMERIS_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.Alpha = f
		}
	}
	if v := os.Getenv("EPHEMERIS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Interp.Workers = n
		}
	}
}
