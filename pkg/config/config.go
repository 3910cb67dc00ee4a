package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type StorageConfig struct {
	Backend         string `yaml:"backend"`
	Root            string `yaml:"root"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	RawContainer    string `yaml:"raw_container"`
	TextContainer   string `yaml:"text_container"`
	CorpusContainer string `yaml:"corpus_container"`
	GoldBlobName    string `yaml:"gold_blob_name"`
	CorpusBlobName  string `yaml:"corpus_blob_name"`
}

type FetchConfig struct {
	RateLimit float64       `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	URLsFile  string        `yaml:"urls_file"`
}

type ExtractConfig struct {
	AntiwordPath string `yaml:"antiword_path"`
}

type AnonymizeConfig struct {
	Enabled *bool `yaml:"enabled"`
}

type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type LLMConfig struct {
	BaseURL    string `yaml:"base_url"`
	EmbedModel string `yaml:"embed_model"`
}

type ServerConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Extract   ExtractConfig   `yaml:"extract"`
	Anonymize AnonymizeConfig `yaml:"anonymize"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// AnonymizeEnabled defaults to true when the key is absent.
func (c *Config) AnonymizeEnabled() bool {
	return c.Anonymize.Enabled == nil || *c.Anonymize.Enabled
}

func LoadConfig(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"verdict.yaml",
			"config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/verdict/config.yaml"),
			"/etc/verdict/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Storage.Backend == "" {
		config.Storage.Backend = "fs"
	}
	if config.Storage.Root == "" {
		config.Storage.Root = "data"
	}
	if config.Storage.Region == "" {
		config.Storage.Region = "us-east-1"
	}
	if config.Storage.RawContainer == "" {
		config.Storage.RawContainer = "raw"
	}
	if config.Storage.TextContainer == "" {
		config.Storage.TextContainer = "text"
	}
	if config.Storage.CorpusContainer == "" {
		config.Storage.CorpusContainer = "corpus"
	}
	if config.Storage.GoldBlobName == "" {
		config.Storage.GoldBlobName = "gross_negligence_gold_candidates.jsonl"
	}
	if config.Storage.CorpusBlobName == "" {
		config.Storage.CorpusBlobName = "corpus_anon.jsonl"
	}

	if config.Fetch.RateLimit == 0 {
		config.Fetch.RateLimit = 0.5
	}
	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 60 * time.Second
	}
	if config.Fetch.UserAgent == "" {
		config.Fetch.UserAgent = "corpus-agent/1.0"
	}
	if config.Fetch.URLsFile == "" {
		config.Fetch.URLsFile = "urls.txt"
	}

	if config.Extract.AntiwordPath == "" {
		config.Extract.AntiwordPath = "antiword"
	}

	if config.Pipeline.Workers == 0 {
		config.Pipeline.Workers = 4
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "court_decisions"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text"
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8080"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func mergeWithEnv(config *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("STORAGE_BACKEND", &config.Storage.Backend)
	str("STORAGE_ROOT", &config.Storage.Root)
	str("STORAGE_ENDPOINT", &config.Storage.Endpoint)
	str("STORAGE_ACCESS_KEY", &config.Storage.AccessKey)
	str("STORAGE_SECRET_KEY", &config.Storage.SecretKey)
	str("RAW_CONTAINER", &config.Storage.RawContainer)
	str("TEXT_CONTAINER", &config.Storage.TextContainer)
	str("CORPUS_CONTAINER", &config.Storage.CorpusContainer)
	str("GOLD_BLOB_NAME", &config.Storage.GoldBlobName)
	str("CORPUS_BLOB_NAME", &config.Storage.CorpusBlobName)
	str("DATABASE_URL", &config.Database.URL)
	str("OLLAMA_BASE_URL", &config.LLM.BaseURL)
	str("LOG_LEVEL", &config.Log.Level)

	// seconds between requests, as the fetch stage used to sleep
	if v := os.Getenv("RATE_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			config.Fetch.RateLimit = 1 / secs
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.ListenAddr = ":" + port
	}
}
