package config

import (
	"fmt"
	"net/url"
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

	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q, expected openai or ollama", c.Embedding.Provider),
		})
	}

	if c.Embedding.BaseURL != "" {
		if _, err := url.Parse(c.Embedding.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "embedding.base_url",
				Message: "invalid embedding base URL",
			})
		}
	}

	if c.Embedding.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Ingest.MaxChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.max_chars",
			Message: "max_chars must be positive",
		})
	}

	if c.Ingest.RetryAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.retry_attempts",
			Message: "retry_attempts must be positive",
		})
	}

	if c.Search.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.top_k",
			Message: "top_k must be positive",
		})
	}

	return errors
}
