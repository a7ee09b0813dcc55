package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pkgerrors "vectorhub/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Supported engine backends
const (
	BackendMilvus = "milvus"
	BackendQdrant = "qdrant"
	BackendOasis  = "oasis"
	BackendMemory = "memory"
)

const (
	DefaultHost            = "localhost"
	DefaultMilvusPort      = 19530
	DefaultDialTimeout     = 10 * time.Second
	DefaultSchemaCacheSize = 256
	DefaultMaxBatchSize    = 10000
	DefaultLoadBatchSize   = 1000
	DefaultEmbeddingModel  = "text-embedding-004"
)

// Environment overrides for values that should not live in the file
const (
	EnvHost     = "VECTORHUB_ENGINE_HOST"
	EnvPort     = "VECTORHUB_ENGINE_PORT"
	EnvUsername = "VECTORHUB_ENGINE_USERNAME"
	EnvPassword = "VECTORHUB_ENGINE_PASSWORD"
	EnvAPIKey   = "VECTORHUB_EMBEDDING_API_KEY"
)

type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Log       LogConfig       `yaml:"log"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Writer    WriterConfig    `yaml:"writer"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// EngineConfig describes how to reach the remote vector engine.
type EngineConfig struct {
	Backend  string `yaml:"backend"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// TLS is honored by the HTTP (oasis) backend only
	TLS         bool          `yaml:"tls"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	// SchemaCacheSize bounds the number of collection schemas kept locally
	SchemaCacheSize int `yaml:"schema_cache_size"`
	// NList is the IVF cluster count requested by BuildIndex
	NList int `yaml:"nlist"`
	// NProbe is the number of IVF clusters scanned per query
	NProbe int `yaml:"nprobe"`
	// DataDir makes the memory backend durable; empty keeps it in process
	DataDir string `yaml:"data_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type TracingConfig struct {
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

type WriterConfig struct {
	// MaxBatchSize is the largest batch a single Insert accepts
	MaxBatchSize int `yaml:"max_batch_size"`
	// LoadBatchSize is the chunk size used when loading files
	LoadBatchSize int `yaml:"load_batch_size"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// Address returns host:port.
func (e EngineConfig) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Default returns a config pointing at a local Milvus.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend:         BackendMilvus,
			Host:            DefaultHost,
			Port:            DefaultMilvusPort,
			DialTimeout:     DefaultDialTimeout,
			SchemaCacheSize: DefaultSchemaCacheSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			ServiceName: "vectorhub",
			SampleRate:  1.0,
		},
		Writer: WriterConfig{
			MaxBatchSize:  DefaultMaxBatchSize,
			LoadBatchSize: DefaultLoadBatchSize,
		},
		Embedding: EmbeddingConfig{
			Provider: "gemini",
			Model:    DefaultEmbeddingModel,
		},
	}
}

// FromFile reads a YAML config on top of Default and applies env overrides.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvHost); ok {
		c.Engine.Host = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", pkgerrors.ErrInvalidConfig, EnvPort, v)
		}
		c.Engine.Port = port
	}
	if v, ok := os.LookupEnv(EnvUsername); ok {
		c.Engine.Username = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Engine.Password = v
	}
	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		c.Embedding.APIKey = v
	}
	return nil
}

// Validate checks the whole config.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Writer.MaxBatchSize < 0 || c.Writer.LoadBatchSize < 0 {
		return fmt.Errorf("%w: batch sizes must not be negative", pkgerrors.ErrInvalidConfig)
	}
	if c.Writer.MaxBatchSize > 0 && c.Writer.LoadBatchSize > c.Writer.MaxBatchSize {
		return fmt.Errorf("%w: load_batch_size %d exceeds max_batch_size %d",
			pkgerrors.ErrInvalidConfig, c.Writer.LoadBatchSize, c.Writer.MaxBatchSize)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("%w: sample_rate %.2f outside [0, 1]", pkgerrors.ErrInvalidConfig, c.Tracing.SampleRate)
	}
	return nil
}

// Validate checks the connection settings. Credentials may be empty when
// the engine runs without auth.
func (e EngineConfig) Validate() error {
	switch e.Backend {
	case BackendMilvus, BackendQdrant, BackendOasis:
		if e.Host == "" {
			return fmt.Errorf("%w: engine host is empty", pkgerrors.ErrInvalidConfig)
		}
		if e.Port < 1 || e.Port > 65535 {
			return fmt.Errorf("%w: engine port %d outside 1-65535", pkgerrors.ErrInvalidConfig, e.Port)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown engine backend %q", pkgerrors.ErrInvalidConfig, e.Backend)
	}
	if e.DialTimeout < 0 || e.SchemaCacheSize < 0 || e.NList < 0 || e.NProbe < 0 {
		return fmt.Errorf("%w: negative engine setting", pkgerrors.ErrInvalidConfig)
	}
	return nil
}
