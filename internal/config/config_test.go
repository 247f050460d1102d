package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.Memory.Enabled)
	assert.Equal(t, 86400, cfg.Memory.TTLSecs)
	assert.Equal(t, 0.6, cfg.VectorStore.MinScore)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2000, cfg.Research.MaxTokens)
	assert.Equal(t, "azure", cfg.Generator.Type)
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
memory:
  enabled: false
  ttl_secs: 60
vector_store:
  type: qdrant
  qdrant:
    url: http://qdrant:6333
generator:
  type: openai
  endpoint: ""
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Memory.Enabled)
	assert.Equal(t, 60, cfg.Memory.TTLSecs)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "landmarks", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Generator.Endpoint)
	assert.Equal(t, 10, cfg.Research.PassageTopK)
}

func TestEnvOverridesStripInlineComments(t *testing.T) {
	t.Setenv("ENABLE_MEMORY", "false # turn off in dev")
	t.Setenv("MEMORY_TTL_SECONDS", "120 # two minutes")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("VECTOR_DB_API_URL", "http://vectors:9000")
	t.Setenv("LANDMARK_METADATA_API_URL", "http://meta:9001")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.Memory.Enabled)
	assert.Equal(t, 120, cfg.Memory.TTLSecs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://vectors:9000", cfg.VectorStore.CoreDataStore.URL)
	assert.Equal(t, "http://meta:9001", cfg.Metadata.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.Generator.Deployment)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{name: "zero ttl", mutate: func(c *AppConfig) { c.Memory.TTLSecs = 0 }, wantErr: true},
		{name: "score above one", mutate: func(c *AppConfig) { c.VectorStore.MinScore = 1.5 }, wantErr: true},
		{name: "no attempts", mutate: func(c *AppConfig) { c.Retry.MaxAttempts = 0 }, wantErr: true},
		{name: "no concurrency", mutate: func(c *AppConfig) { c.Research.MaxConcurrentCalls = 0 }, wantErr: true},
		{name: "unknown generator", mutate: func(c *AppConfig) { c.Generator.Type = "llama" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Server.Address = ":9999"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Server.Address)
}
