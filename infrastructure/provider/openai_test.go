package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer mimics the OpenAI embeddings endpoint. Each vector is
// [len(text), position, 0.5] so tests can check order. The first failFirst
// requests answer with failStatus.
func fakeEmbeddingServer(t *testing.T, counter *atomic.Int64, failFirst int64, failStatus int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)
		if n <= failFirst {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"try later","type":"server_error"}}`))
			return
		}

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		data := make([]map[string]any, len(body.Input))
		for i, text := range body.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(text)), float64(i), 0.5},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage": map[string]int{
				"prompt_tokens": len(body.Input) * 4,
				"total_tokens":  len(body.Input) * 4,
			},
		})
	}))
}

func newTestProvider(url string, retries int) *OpenAIProvider {
	return NewOpenAIProviderFromConfig(OpenAIConfig{
		APIKey:         "test-key",
		BaseURL:        url,
		EmbeddingModel: "test-model",
		MaxRetries:     retries,
		InitialDelay:   time.Millisecond,
	})
}

func TestOpenAIProvider_EmbedEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, 0, 0)
	defer srv.Close()

	resp, err := newTestProvider(srv.URL, 1).Embed(context.Background(), NewEmbeddingRequest(nil))
	require.NoError(t, err)
	require.Empty(t, resp.Embeddings())
	require.Equal(t, int64(0), counter.Load(), "no HTTP request for empty input")
}

func TestOpenAIProvider_EmbedPreservesOrder(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, 0, 0)
	defer srv.Close()

	texts := []string{"a", "bbb", "cc"}
	resp, err := newTestProvider(srv.URL, 1).Embed(context.Background(), NewEmbeddingRequest(texts))
	require.NoError(t, err)
	require.Len(t, resp.Embeddings(), 3)
	for i, vec := range resp.Embeddings() {
		require.InDelta(t, float64(len(texts[i])), vec[0], 1e-6)
		require.InDelta(t, float64(i), vec[1], 1e-6)
	}
	require.Equal(t, int64(1), counter.Load())
	require.Equal(t, 12, resp.Usage().TotalTokens())
}

func TestOpenAIProvider_RetriesServerErrors(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, 2, http.StatusServiceUnavailable)
	defer srv.Close()

	resp, err := newTestProvider(srv.URL, 3).Embed(context.Background(), NewEmbeddingRequest([]string{"hello"}))
	require.NoError(t, err)
	require.Len(t, resp.Embeddings(), 1)
	require.Equal(t, int64(3), counter.Load(), "two failures then success")
}

func TestOpenAIProvider_GivesUpAfterMaxRetries(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, 100, http.StatusTooManyRequests)
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 2).Embed(context.Background(), NewEmbeddingRequest([]string{"hello"}))
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.Equal(t, int64(3), counter.Load(), "initial attempt plus two retries")
}

func TestOpenAIProvider_DoesNotRetryClientErrors(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, 100, http.StatusBadRequest)
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 5).Embed(context.Background(), NewEmbeddingRequest([]string{"hello"}))
	require.Error(t, err)
	require.Equal(t, int64(1), counter.Load())
}

func TestOpenAIProvider_EmbedCancelledContext(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, 0, 0)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProvider(srv.URL, 1).Embed(ctx, NewEmbeddingRequest([]string{"a", "b"}))
	require.Error(t, err)
}

func TestOpenAIProvider_CountMismatchIsError(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1]}],"model":"m","usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 1).Embed(context.Background(), NewEmbeddingRequest([]string{"hello", "world"}))
	require.ErrorIs(t, err, errEmbeddingCountMismatch)
	require.Equal(t, int64(2), counter.Load(), "count mismatch is retried")
}
