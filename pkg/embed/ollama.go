package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"

	"github.com/beaconhq/beacon/pkg/fault"
)

// OllamaConfig configures the local-model embeddings backend.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	MaxChars  int
	RateLimit float64 // requests per second
}

// OllamaEmbedder produces vectors via a local Ollama server.
type OllamaEmbedder struct {
	llm      *ollama.LLM
	maxChars int
	limiter  *rate.Limiter
}

func NewOllama(config OllamaConfig) (*OllamaEmbedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.MaxChars == 0 {
		config.MaxChars = 8192
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}

	llm, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}

	return &OllamaEmbedder{
		llm:      llm,
		maxChars: config.MaxChars,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fault.New(fault.EmptyInput, "text is empty")
	}
	text = Truncate(text, e.maxChars)

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err)
	}

	vectors, err := e.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		// Ollama surfaces throttling only in the error text.
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") {
			return nil, fault.Wrap(fault.RateLimited, err)
		}
		return nil, fault.Wrap(fault.UpstreamUnavailable, err)
	}
	if len(vectors) == 0 {
		return nil, fault.New(fault.UpstreamUnavailable, "embedding service returned no vectors")
	}
	return vectors[0], nil
}
