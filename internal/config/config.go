// Package config loads the service configuration from a YAML file with
// environment overrides for secrets and deployment values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"studymate/internal/links"
)

// Store types.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Vector sidecar types.
const (
	VectorsStore  = "store"
	VectorsQdrant = "qdrant"
)

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StoreConfig struct {
	Type        string `yaml:"type"`
	DatabaseURL string `yaml:"database_url"`
}

// VectorsConfig selects where chunk embeddings live: the store's own
// chunk_vectors table or a Qdrant collection.
type VectorsConfig struct {
	Type       string `yaml:"type"`
	QdrantAddr string `yaml:"qdrant_addr"`
	Collection string `yaml:"collection"`
	VectorSize uint64 `yaml:"vector_size"`
}

type InferenceConfig struct {
	CompletionURL   string        `yaml:"completion_url"`
	EmbeddingURL    string        `yaml:"embedding_url"`
	FolderID        string        `yaml:"folder_id"`
	APIKey          string        `yaml:"api_key"`
	AuthScheme      string        `yaml:"auth_scheme"`
	CompletionModel string        `yaml:"completion_model"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	Burst           int           `yaml:"burst"`
}

type PipelineConfig struct {
	Workers         int     `yaml:"workers"`
	QueueSize       int     `yaml:"queue_size"`
	MaxQueryLength  int     `yaml:"max_query_length"`
	TopK            int     `yaml:"top_k"`
	Threshold       float64 `yaml:"threshold"`
	ReuseEmbeddings bool    `yaml:"reuse_embeddings"`
	EmbedWorkers    int     `yaml:"embed_workers"`
}

type TelegramConfig struct {
	BaseURL       string `yaml:"base_url"`
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type AdminConfig struct {
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Vectors   VectorsConfig   `yaml:"vectors"`
	Inference InferenceConfig `yaml:"inference"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Links     []links.Source  `yaml:"links"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Admin     AdminConfig     `yaml:"admin"`
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080", RequestTimeout: 60 * time.Second},
		Log:     LogConfig{Level: "info"},
		Store:   StoreConfig{Type: StoreMemory},
		Vectors: VectorsConfig{Type: VectorsStore, Collection: "studymate_chunks", VectorSize: 256},
		Inference: InferenceConfig{
			AuthScheme:  "Bearer",
			Temperature: 0.6,
			MaxTokens:   500,
			Timeout:     30 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			QueueSize:       64,
			MaxQueryLength:  254,
			TopK:            3,
			Threshold:       0,
			ReuseEmbeddings: true,
			EmbedWorkers:    4,
		},
		Links: append([]links.Source(nil), links.DefaultSources...),
		Admin: AdminConfig{Username: "admin", TokenTTL: 12 * time.Hour},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Server.Addr, "HTTP_ADDR")
	setString(&cfg.Store.DatabaseURL, "DB_URL")
	setString(&cfg.Inference.FolderID, "YANDEX_FOLDER_ID")
	setString(&cfg.Inference.APIKey, "YANDEX_API_KEY")
	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Telegram.WebhookSecret, "TELEGRAM_WEBHOOK_SECRET")
	setString(&cfg.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&cfg.Admin.JWTSecret, "JWT_SECRET")

	host, port := os.Getenv("QDRANT_SERVICE_HOST"), os.Getenv("QDRANT_SERVICE_PORT")
	if host != "" && port != "" {
		cfg.Vectors.QdrantAddr = host + ":" + port
	}

	if v := os.Getenv("PIPELINE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PIPELINE_WORKERS: %w", err)
		}
		cfg.Pipeline.Workers = n
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url (DB_URL) is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store.type %q", c.Store.Type)
	}

	switch c.Vectors.Type {
	case VectorsStore:
	case VectorsQdrant:
		if c.Vectors.QdrantAddr == "" {
			return errors.New("vectors.qdrant_addr is required for the qdrant sidecar")
		}
		if c.Vectors.VectorSize == 0 {
			return errors.New("vectors.vector_size must be positive")
		}
	default:
		return fmt.Errorf("unknown vectors.type %q", c.Vectors.Type)
	}

	if c.Inference.FolderID == "" || c.Inference.APIKey == "" {
		return errors.New("inference.folder_id and inference.api_key are required")
	}
	if c.Inference.Timeout <= 0 {
		return errors.New("inference.timeout must be positive")
	}
	if c.Inference.RatePerSecond < 0 || c.Inference.Burst < 0 {
		return errors.New("inference rate limit must not be negative")
	}
	if c.Pipeline.Workers <= 0 || c.Pipeline.QueueSize <= 0 {
		return errors.New("pipeline.workers and pipeline.queue_size must be positive")
	}
	if c.Pipeline.MaxQueryLength <= 0 || c.Pipeline.TopK <= 0 {
		return errors.New("pipeline.max_query_length and pipeline.top_k must be positive")
	}
	if c.Telegram.Token == "" {
		return errors.New("telegram.token (TELEGRAM_BOT_TOKEN) is required")
	}
	if c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret (JWT_SECRET) is required")
	}
	return nil
}
