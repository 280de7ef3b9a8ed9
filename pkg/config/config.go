package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Embedding struct {
		Provider  string  `yaml:"provider"` // "openai" or "ollama"
		BaseURL   string  `yaml:"base_url"`
		Model     string  `yaml:"model"`
		RateLimit float64 `yaml:"rate_limit"`
		TimeoutMS int     `yaml:"timeout_ms"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Ingest struct {
		MaxChars         int `yaml:"max_chars"`
		RetryAttempts    int `yaml:"retry_attempts"`
		RetryBaseDelayMS int `yaml:"retry_base_delay_ms"`
	} `yaml:"ingest"`

	Search struct {
		TopK int `yaml:"top_k"`
	} `yaml:"search"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/beacon/config.yaml"),
			"/etc/beacon/config.yaml",
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
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
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
	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "openai"
	}
	if config.Embedding.RateLimit == 0 {
		config.Embedding.RateLimit = 5
	}
	if config.Embedding.TimeoutMS == 0 {
		config.Embedding.TimeoutMS = 30000
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}

	if config.Ingest.MaxChars == 0 {
		config.Ingest.MaxChars = 8192
	}
	if config.Ingest.RetryAttempts == 0 {
		config.Ingest.RetryAttempts = 3
	}
	if config.Ingest.RetryBaseDelayMS == 0 {
		config.Ingest.RetryBaseDelayMS = 500
	}

	if config.Search.TopK == 0 {
		config.Search.TopK = 3
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("EMBEDDING_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
