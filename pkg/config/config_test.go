package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"STORAGE_BACKEND", "STORAGE_ROOT", "STORAGE_ENDPOINT", "STORAGE_ACCESS_KEY",
		"STORAGE_SECRET_KEY", "RAW_CONTAINER", "TEXT_CONTAINER", "CORPUS_CONTAINER",
		"GOLD_BLOB_NAME", "CORPUS_BLOB_NAME", "RATE_SECONDS", "DATABASE_URL",
		"OLLAMA_BASE_URL", "PORT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
storage:
  backend: "s3"
  endpoint: "minio:9000"
  access_key: "minio"
  secret_key: "minio123"
  raw_container: "sirovo"

fetch:
  rate_limit: 2
  timeout: 15s

anonymize:
  enabled: false

pipeline:
  workers: 8

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_decisions"
  vector_dim: 384

llm:
  embed_model: "all-minilm"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "s3", config.Storage.Backend)
	assert.Equal(t, "minio:9000", config.Storage.Endpoint)
	assert.Equal(t, "sirovo", config.Storage.RawContainer)
	assert.Equal(t, "text", config.Storage.TextContainer)
	assert.Equal(t, "gross_negligence_gold_candidates.jsonl", config.Storage.GoldBlobName)
	assert.Equal(t, 2.0, config.Fetch.RateLimit)
	assert.Equal(t, 15*time.Second, config.Fetch.Timeout)
	assert.Equal(t, "corpus-agent/1.0", config.Fetch.UserAgent)
	assert.False(t, config.AnonymizeEnabled())
	assert.Equal(t, 8, config.Pipeline.Workers)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 384, config.Database.VectorDim)
	assert.Equal(t, "all-minilm", config.LLM.EmbedModel)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Empty(t, config.Validate())
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "fs", config.Storage.Backend)
	assert.Equal(t, "corpus_anon.jsonl", config.Storage.CorpusBlobName)
	assert.Equal(t, 0.5, config.Fetch.RateLimit)
	assert.True(t, config.AnonymizeEnabled())
	assert.Equal(t, 4, config.Pipeline.Workers)
	assert.Equal(t, "court_decisions", config.Database.TableName)
	assert.Equal(t, ":8080", config.Server.ListenAddr)
	assert.Empty(t, config.Validate())
}

func TestMergeWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("STORAGE_ENDPOINT", "s3.local:9000")
	t.Setenv("TEXT_CONTAINER", "tekst")
	t.Setenv("RATE_SECONDS", "4")
	t.Setenv("DATABASE_URL", "postgres://db/verdict")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "s3", config.Storage.Backend)
	assert.Equal(t, "s3.local:9000", config.Storage.Endpoint)
	assert.Equal(t, "tekst", config.Storage.TextContainer)
	assert.Equal(t, 0.25, config.Fetch.RateLimit)
	assert.Equal(t, "postgres://db/verdict", config.Database.URL)
	assert.Equal(t, ":9090", config.Server.ListenAddr)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "azure" },
			fields: []string{"storage.backend"},
		},
		{
			name:   "s3 without endpoint",
			mutate: func(c *Config) { c.Storage.Backend = "s3" },
			fields: []string{"storage.endpoint"},
		},
		{
			name:   "container with slash",
			mutate: func(c *Config) { c.Storage.TextContainer = "a/b" },
			fields: []string{"storage.text_container"},
		},
		{
			name: "bad numbers",
			mutate: func(c *Config) {
				c.Fetch.RateLimit = -1
				c.Pipeline.Workers = 0
				c.Database.VectorDim = 0
			},
			fields: []string{"fetch.rate_limit", "pipeline.workers", "database.vector_dim"},
		},
		{
			name: "bad log settings",
			mutate: func(c *Config) {
				c.Log.Level = "trace"
				c.Log.Format = "xml"
			},
			fields: []string{"log.level", "log.format"},
		},
		{
			name:   "base url without scheme",
			mutate: func(c *Config) { c.LLM.BaseURL = "ollama" },
			fields: []string{"llm.base_url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			var fields []string
			for _, e := range c.Validate() {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.fields, fields)
		})
	}
}

func TestConfigValidation_Order(t *testing.T) {
	c := Config{}
	applyDefaults(&c)
	c.Storage.RawContainer = ""
	c.Storage.TextContainer = "a/b"
	c.Storage.CorpusContainer = ""
	c.Storage.GoldBlobName = `x\y`
	c.Storage.CorpusBlobName = ""

	want := []string{
		"storage.raw_container",
		"storage.text_container",
		"storage.corpus_container",
		"storage.gold_blob_name",
		"storage.corpus_blob_name",
	}
	for i := 0; i < 20; i++ {
		var fields []string
		for _, e := range c.Validate() {
			fields = append(fields, e.Field)
		}
		require.Equal(t, want, fields)
	}
}
