package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppInfoConfig names the running service.
type AppInfoConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address          string `yaml:"address"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MemoryConfig configures the conversation store.
type MemoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	TTLSecs       int    `yaml:"ttl_secs"`
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TTL returns the configured time-to-live.
func (m MemoryConfig) TTL() time.Duration { return time.Duration(m.TTLSecs) * time.Second }

// RetryConfig is an exponential backoff policy for upstream calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts"`
	InitialDelayMS   int     `yaml:"initial_delay_ms"`
	MaxDelayMS       int     `yaml:"max_delay_ms"`
	Multiplier       float64 `yaml:"multiplier"`
	RandomizationPct float64 `yaml:"randomization_pct"`
}

// InitialDelay returns the first backoff interval.
func (r RetryConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff cap.
func (r RetryConfig) MaxDelay() time.Duration { return time.Duration(r.MaxDelayMS) * time.Millisecond }

// BreakerConfig configures the per-upstream circuit breaker.
type BreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MaxRequests      uint32  `yaml:"max_requests"`
	IntervalSecs     int     `yaml:"interval_secs"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
	FailureThreshold float64 `yaml:"failure_threshold"`
	MinRequests      uint32  `yaml:"min_requests"`
}

// MetadataConfig points at the landmark metadata API.
type MetadataConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder used by local indexes.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// CoreDataStoreConfig points at the hosted vector search API.
type CoreDataStoreConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the passage search backend.
type VectorStoreConfig struct {
	Type          string               `yaml:"type"`
	MinScore      float64              `yaml:"min_score"`
	TopK          int                  `yaml:"top_k"`
	CoreDataStore *CoreDataStoreConfig `yaml:"coredatastore,omitempty"`
	Qdrant        *QdrantConfig        `yaml:"qdrant,omitempty"`
}

// GeneratorConfig configures the chat completion backend.
type GeneratorConfig struct {
	Type        string `yaml:"type"`
	Endpoint    string `yaml:"endpoint"`
	Deployment  string `yaml:"deployment"`
	Model       string `yaml:"model"`
	APIVersion  string `yaml:"api_version"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ResearchConfig tunes report assembly.
type ResearchConfig struct {
	MaxConcurrentCalls int     `yaml:"max_concurrent_calls"`
	RequestTimeoutSecs int     `yaml:"request_timeout_secs"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float64 `yaml:"temperature"`
	TopP               float64 `yaml:"top_p"`
	PassageTopK        int     `yaml:"passage_top_k"`
}

// RequestTimeout returns the per-report deadline; zero disables it.
func (r ResearchConfig) RequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeoutSecs) * time.Second
}

// ChunkerConfig configures how local documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// IngestConfig lists local corpora to index at startup.
type IngestConfig struct {
	Paths               []string      `yaml:"paths"`
	Chunker             ChunkerConfig `yaml:"chunker"`
	SummaryMaxSentences int           `yaml:"summary_max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	App         AppInfoConfig     `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Memory      MemoryConfig      `yaml:"memory"`
	Metadata    MetadataConfig    `yaml:"metadata"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Research    ResearchConfig    `yaml:"research"`
	Retry       RetryConfig       `yaml:"retry"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Ingest      IngestConfig      `yaml:"ingest"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment variables (after .env is loaded) override file values.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, cfg.Validate()
}

// LoadDefault tries ./config.yaml first, then ~/.config/landmarks/config.yaml.
// If neither exists, it writes defaults to ~/.config/landmarks/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges.
func (c *AppConfig) Validate() error {
	if c.Memory.TTLSecs <= 0 {
		return fmt.Errorf("memory.ttl_secs must be positive, got %d", c.Memory.TTLSecs)
	}
	if c.VectorStore.MinScore < 0 || c.VectorStore.MinScore > 1 {
		return fmt.Errorf("vector_store.min_score must be within [0,1], got %v", c.VectorStore.MinScore)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Research.MaxConcurrentCalls < 1 {
		return fmt.Errorf("research.max_concurrent_calls must be at least 1, got %d", c.Research.MaxConcurrentCalls)
	}
	switch c.Generator.Type {
	case "azure", "openai":
	default:
		return fmt.Errorf("unknown generator type: %s", c.Generator.Type)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "landmarks", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		App:     AppInfoConfig{Name: "NYC Landmarks Research Agent", Version: "0.1.0"},
		Server:  ServerConfig{Address: ":8000", ReadTimeoutSecs: 15, WriteTimeoutSecs: 180},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Memory:  MemoryConfig{Enabled: true, TTLSecs: 86400, SweepSchedule: "@every 5m"},
		Metadata: MetadataConfig{
			BaseURL:     "http://localhost:8000",
			TimeoutSecs: 30,
		},
		VectorStore: VectorStoreConfig{
			Type:          "coredatastore",
			MinScore:      0.6,
			TopK:          10,
			CoreDataStore: &CoreDataStoreConfig{URL: "http://localhost:8000", TimeoutSecs: 30},
		},
		Embedder: EmbedderConfig{Type: "tfidf"},
		Generator: GeneratorConfig{
			Type:        "azure",
			Endpoint:    "https://example.openai.azure.com",
			Deployment:  "gpt-4",
			APIVersion:  "2023-05-15",
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 60,
		},
		Research: ResearchConfig{
			MaxConcurrentCalls: 8,
			RequestTimeoutSecs: 120,
			MaxTokens:          2000,
			Temperature:        0.5,
			TopP:               0.95,
			PassageTopK:        10,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialDelayMS: 2000,
			MaxDelayMS:     10000,
			Multiplier:     2,
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			IntervalSecs:     30,
			TimeoutSecs:      60,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		Ingest: IngestConfig{
			Chunker:             ChunkerConfig{Type: "sentence", SentencesPerChunk: 5, OverlapSentences: 1},
			SummaryMaxSentences: 5,
		},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.VectorStore.TopK == 0 {
		cfg.VectorStore.TopK = 10
	}
	if cfg.Research.PassageTopK == 0 {
		cfg.Research.PassageTopK = cfg.VectorStore.TopK
	}
	if cfg.Ingest.Chunker.SentencesPerChunk == 0 {
		cfg.Ingest.Chunker.SentencesPerChunk = 5
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.Type == "openai" && cfg.Generator.Endpoint == "" {
		cfg.Generator.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.Collection == "" {
		cfg.VectorStore.Qdrant.Collection = "landmarks"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
}

// applyEnvOverrides maps the service's historical environment variables onto the config.
func applyEnvOverrides(cfg *AppConfig) {
	if v := getEnv("APP_NAME"); v != "" {
		cfg.App.Name = v
	}
	if v := getEnv("APP_VERSION"); v != "" {
		cfg.App.Version = v
	}
	if v := getEnv("SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := getEnv("LANDMARK_METADATA_API_URL"); v != "" {
		cfg.Metadata.BaseURL = v
	}
	if v := getEnv("VECTOR_DB_API_URL"); v != "" {
		if cfg.VectorStore.CoreDataStore == nil {
			cfg.VectorStore.CoreDataStore = &CoreDataStoreConfig{TimeoutSecs: 30}
		}
		cfg.VectorStore.CoreDataStore.URL = v
	}
	if v := getEnv("AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.Generator.Endpoint = v
	}
	if v := getEnv("AZURE_OPENAI_DEPLOYMENT"); v != "" {
		cfg.Generator.Deployment = v
	}
	if v := getEnv("ENABLE_MEMORY"); v != "" {
		cfg.Memory.Enabled = parseBool(v, cfg.Memory.Enabled)
	}
	if v := getEnv("MEMORY_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Memory.TTLSecs = secs
		}
	}
}

// getEnv returns the variable with any inline "# comment" stripped.
func getEnv(key string) string {
	v := os.Getenv(key)
	if i := strings.Index(v, "#"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return fallback
}
