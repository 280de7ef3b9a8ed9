package embed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconhq/beacon/pkg/embed"
	"github.com/beaconhq/beacon/pkg/fault"
)

func embeddingServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(baseURL string) *embed.OpenAIEmbedder {
	return embed.NewOpenAI(embed.OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL + "/v1",
		RateLimit: 1000,
	})
}

func TestOpenAIEmbed(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small"}`))
	})

	e := newTestEmbedder(srv.URL)
	vec, err := e.Embed(context.Background(), "what is access control?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIEmbedEmptyInput(t *testing.T) {
	e := newTestEmbedder("http://localhost:1")

	_, err := e.Embed(context.Background(), "   \n\t ")
	require.Error(t, err)
	assert.Equal(t, fault.EmptyInput, fault.KindOf(err))
}

func TestOpenAIEmbedRateLimited(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	})

	e := newTestEmbedder(srv.URL)
	_, err := e.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, fault.RateLimited, fault.KindOf(err))
}

func TestOpenAIEmbedServerError(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"internal error","type":"server_error"}}`))
	})

	e := newTestEmbedder(srv.URL)
	_, err := e.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, fault.UpstreamUnavailable, fault.KindOf(err))
}

func TestOpenAIEmbedAuthFailure(t *testing.T) {
	// A rejected API key is a deployment fault, not a caller error: it must
	// not surface as a 400-class input kind.
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})

	e := newTestEmbedder(srv.URL)
	_, err := e.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, fault.UpstreamUnavailable, fault.KindOf(err))
}

func TestOpenAIEmbedBadRequest(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"input too long","type":"invalid_request_error"}}`))
	})

	e := newTestEmbedder(srv.URL)
	_, err := e.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, fault.InvalidQuery, fault.KindOf(err))
}

func TestOpenAIEmbedUnreachable(t *testing.T) {
	e := newTestEmbedder("http://127.0.0.1:1")

	_, err := e.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, fault.UpstreamUnavailable, fault.KindOf(err))
}

func TestOpenAIEmbedRecoversAfterThrottle(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
			return
		}
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}],"model":"text-embedding-3-small"}`))
	})

	e := newTestEmbedder(srv.URL)
	ctx := context.Background()

	_, err := e.Embed(ctx, "text")
	assert.Equal(t, fault.RateLimited, fault.KindOf(err))
	_, err = e.Embed(ctx, "text")
	assert.Equal(t, fault.RateLimited, fault.KindOf(err))

	vec, err := e.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
}
