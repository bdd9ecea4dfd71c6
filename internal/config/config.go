package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docuchat/internal/models"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 3
	defaultTemperature  = 0.1
	defaultHistorySize  = 10
	defaultCollection   = "DocumentChunk"
	defaultChromemPath  = "./chromemdb"
	defaultDimension    = 1536
	defaultAddr         = ":8000"
	defaultLLMTimeout   = 60 * time.Second
	defaultMaxUpload    = "10M"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	RAG      RAGConfig      `yaml:"rag"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	VectorDB VectorDBConfig `yaml:"vector_db"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxUpload       string        `yaml:"max_upload"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type RAGConfig struct {
	ChunkSize    int           `yaml:"chunk_size"`
	ChunkOverlap int           `yaml:"chunk_overlap"`
	TopK         int           `yaml:"top_k"`
	Temperature  float64       `yaml:"temperature"`
	HistorySize  int           `yaml:"history_size"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

// LLMConfig describes one model endpoint. Provider is openai, ollama or hash
// (hash is an offline embedder and only valid for embed_llm).
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	Key      string        `yaml:"key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type VectorDBConfig struct {
	Backend    string         `yaml:"backend"`
	Collection string         `yaml:"collection"`
	Chromem    ChromemConfig  `yaml:"chromem"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// ChromemConfig configures the embedded vector database. An in-memory
// database can still be snapshotted to SnapshotPath on close and restored on open.
type ChromemConfig struct {
	Path          string `yaml:"path"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	SnapshotPath  string `yaml:"snapshot_path"`
	EncryptionKey string `yaml:"encryption_key"`
}

type PostgresConfig struct {
	DSN       string `yaml:"dsn"`
	Driver    string `yaml:"driver"`
	Dimension int    `yaml:"dimension"`
	Debug     bool   `yaml:"debug"`
}

// LoadConfig reads .env (if any), then the YAML file at path on top of
// Default(), so keys absent from the file keep their default. A missing file
// yields the defaults. The result is validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Log: LogConfig{Level: "info", Console: true},
		EmbedLLM: LLMConfig{
			Provider: "openai",
			Model:    "text-embedding-ada-002",
		},
		ChatLLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		VectorDB: VectorDBConfig{Backend: "chromem"},
		// zero is a valid overlap, so it is only defaulted here and never in applyDefaults
		RAG: RAGConfig{ChunkOverlap: defaultChunkOverlap},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.MaxUpload == "" {
		c.Server.MaxUpload = defaultMaxUpload
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.Temperature == 0 {
		c.RAG.Temperature = defaultTemperature
	}
	if c.RAG.HistorySize == 0 {
		c.RAG.HistorySize = defaultHistorySize
	}
	for _, llm := range []*LLMConfig{&c.EmbedLLM, &c.ChatLLM} {
		if llm.Timeout == 0 {
			llm.Timeout = defaultLLMTimeout
		}
	}
	if c.VectorDB.Backend == "" {
		c.VectorDB.Backend = "chromem"
	}
	if c.VectorDB.Collection == "" {
		c.VectorDB.Collection = defaultCollection
	}
	if c.VectorDB.Chromem.Path == "" {
		c.VectorDB.Chromem.Path = defaultChromemPath
	}
	if c.VectorDB.Postgres.Driver == "" {
		c.VectorDB.Postgres.Driver = "pgdriver"
	}
	if c.VectorDB.Postgres.Dimension == 0 {
		c.VectorDB.Postgres.Dimension = defaultDimension
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		for _, llm := range []*LLMConfig{&c.EmbedLLM, &c.ChatLLM} {
			if llm.Provider == "openai" && llm.Key == "" {
				llm.Key = key
			}
		}
	}
	if dsn := os.Getenv("DOCUCHAT_PG_DSN"); dsn != "" {
		c.VectorDB.Postgres.DSN = dsn
	}
	if addr := os.Getenv("DOCUCHAT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK))
	}
	if c.RAG.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("rag.history_size must be positive, got %d", c.RAG.HistorySize))
	}
	if c.RAG.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("rag.session_ttl must not be negative"))
	}
	switch c.EmbedLLM.Provider {
	case "openai", "ollama", "hash":
	default:
		errs = append(errs, fmt.Errorf("embed_llm.provider %q is not supported", c.EmbedLLM.Provider))
	}
	switch c.ChatLLM.Provider {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("chat_llm.provider %q is not supported", c.ChatLLM.Provider))
	}
	switch c.VectorDB.Backend {
	case "chromem":
		if n := len(c.VectorDB.Chromem.EncryptionKey); n != 0 && n != 32 {
			errs = append(errs, fmt.Errorf("vector_db.chromem.encryption_key must be 32 bytes, got %d", n))
		}
	case "postgres":
		if c.VectorDB.Postgres.DSN == "" {
			errs = append(errs, errors.New("vector_db.postgres.dsn is required for the postgres backend"))
		}
		if c.VectorDB.Postgres.Driver != "pgdriver" && c.VectorDB.Postgres.Driver != "pq" {
			errs = append(errs, fmt.Errorf("vector_db.postgres.driver %q is not supported", c.VectorDB.Postgres.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("vector_db.backend %q is not supported", c.VectorDB.Backend))
	}
	if len(errs) > 0 {
		return models.NewOpError("config", models.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
