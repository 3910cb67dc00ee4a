package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Storage config
	switch c.Storage.Backend {
	case "fs":
		if c.Storage.Root == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.root",
				Message: "root directory is required for the fs backend",
			})
		}
	case "s3":
		if c.Storage.Endpoint == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.endpoint",
				Message: "endpoint is required for the s3 backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (want fs or s3)", c.Storage.Backend),
		})
	}

	names := []struct{ field, value string }{
		{"storage.raw_container", c.Storage.RawContainer},
		{"storage.text_container", c.Storage.TextContainer},
		{"storage.corpus_container", c.Storage.CorpusContainer},
		{"storage.gold_blob_name", c.Storage.GoldBlobName},
		{"storage.corpus_blob_name", c.Storage.CorpusBlobName},
	}
	for _, n := range names {
		if n.value == "" || strings.ContainsAny(n.value, `/\`) {
			errors = append(errors, ValidationError{
				Field:   n.field,
				Message: fmt.Sprintf("invalid name %q", n.value),
			})
		}
	}

	// Validate Fetch config
	if c.Fetch.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Fetch.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.timeout",
			Message: "timeout must be positive",
		})
	}

	// Validate Pipeline config
	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.workers",
			Message: "workers must be between 1 and 64",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate base URL format
	if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	// Validate Log config
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q", c.Log.Level),
		})
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: "format must be text or json",
		})
	}

	return errors
}
