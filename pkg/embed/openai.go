package embed

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/beaconhq/beacon/pkg/fault"
)

// OpenAIConfig configures an embeddings client for any OpenAI-compatible
// endpoint.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxChars  int
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// OpenAIEmbedder produces vectors via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client   *openai.Client
	model    string
	maxChars int
	limiter  *rate.Limiter
}

func NewOpenAI(config OpenAIConfig) *OpenAIEmbedder {
	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}
	if config.MaxChars == 0 {
		config.MaxChars = 8192
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &OpenAIEmbedder{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    config.Model,
		maxChars: config.MaxChars,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fault.New(fault.EmptyInput, "text is empty")
	}
	text = Truncate(text, e.maxChars)

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) == 0 {
		return nil, fault.New(fault.UpstreamUnavailable, "embedding service returned no vectors")
	}
	return resp.Data[0].Embedding, nil
}

// classify maps API failures onto the retry taxonomy: 429 is throttling,
// auth failures are a deployment fault rather than anything the caller sent,
// other 4xx are caller faults, everything else is an upstream failure.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fault.Wrap(fault.RateLimited, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fault.Wrap(fault.UpstreamUnavailable, err)
	case status >= 400 && status < 500:
		return fault.Wrap(fault.InvalidQuery, err)
	}
	return fault.Wrap(fault.UpstreamUnavailable, err)
}
