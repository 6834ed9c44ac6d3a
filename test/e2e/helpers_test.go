package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/infrastructure/api"
	"github.com/helixml/harvest/infrastructure/crawler"
	"github.com/helixml/harvest/infrastructure/provider"
	"github.com/helixml/harvest/internal/log"
)

// TestServer runs the full stack: HTTP API, real crawler and the OpenAI
// provider, pointed at in-process fake sites and a fake embedding endpoint.
type TestServer struct {
	t          *testing.T
	client     *harvest.Client
	httpServer *httptest.Server
	embedder   *httptest.Server

	embedCalls atomic.Int64
}

// NewTestServer creates a test server backed by a SQLite file in a temp dir.
func NewTestServer(t *testing.T, opts ...harvest.Option) *TestServer {
	t.Helper()

	ts := &TestServer{t: t}
	ts.embedder = httptest.NewServer(http.HandlerFunc(ts.embeddings))

	tmpDir := t.TempDir()
	base := []harvest.Option{
		harvest.WithSQLite(filepath.Join(tmpDir, "harvest.db")),
		harvest.WithDataDir(tmpDir),
		harvest.WithLogger(log.Discard()),
		harvest.WithOpenAIConfig(provider.OpenAIConfig{
			APIKey:         "test-key",
			BaseURL:        ts.embedder.URL + "/v1",
			EmbeddingModel: "test-embedding",
			Dimensions:     3,
			Timeout:        5 * time.Second,
			MaxRetries:     1,
			InitialDelay:   10 * time.Millisecond,
			BackoffFactor:  1,
		}),
		harvest.WithCrawlerConfig(crawler.Config{
			MaxPages:    10,
			MaxDepth:    1,
			Concurrency: 2,
			Timeout:     5 * time.Second,
		}),
		harvest.WithSegmentTargetSize(20),
	}

	client, err := harvest.New(append(base, opts...)...)
	if err != nil {
		ts.embedder.Close()
		t.Fatalf("create harvest client: %v", err)
	}
	ts.client = client
	ts.httpServer = httptest.NewServer(api.NewAPIServer(client, "e2e").Handler())

	t.Cleanup(ts.Close)
	return ts
}

// embeddings mimics the OpenAI embeddings endpoint. Each vector is
// [len(text), index, 0.5].
func (ts *TestServer) embeddings(w http.ResponseWriter, r *http.Request) {
	ts.embedCalls.Add(1)

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
		"usage":  map[string]int{"prompt_tokens": len(body.Input), "total_tokens": len(body.Input)},
	})
}

// URL returns the base URL of the API server.
func (ts *TestServer) URL() string {
	return ts.httpServer.URL
}

// Client returns the library client behind the server.
func (ts *TestServer) Client() *harvest.Client {
	return ts.client
}

// EmbedCalls returns the number of requests the embedding endpoint served.
func (ts *TestServer) EmbedCalls() int64 {
	return ts.embedCalls.Load()
}

// Close shuts down the servers and the client.
func (ts *TestServer) Close() {
	ts.httpServer.Close()
	ts.embedder.Close()
	_ = ts.client.Close()
}

// GET performs a GET request and returns the response.
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	resp, err := http.Get(ts.URL() + path)
	if err != nil {
		ts.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with JSON body and returns the response.
func (ts *TestServer) POST(path string, body any) *http.Response {
	ts.t.Helper()
	jsonBody, err := json.Marshal(body)
	if err != nil {
		ts.t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(ts.URL()+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		ts.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// DecodeJSON decodes the response body as JSON into v.
func (ts *TestServer) DecodeJSON(resp *http.Response, v any) {
	ts.t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		ts.t.Fatalf("decode response: %v", err)
	}
}

// ReadBody reads and returns the response body as a string.
func (ts *TestServer) ReadBody(resp *http.Response) string {
	ts.t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatalf("read body: %v", err)
	}
	return string(b)
}

// AssertStatus fails the test when resp does not carry want.
func (ts *TestServer) AssertStatus(resp *http.Response, want int) {
	ts.t.Helper()
	if resp.StatusCode != want {
		ts.t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, ts.ReadBody(resp))
	}
}

// NewSite serves a small HTML site: a home page linking twice to an about
// page under different fragments, an external link, and /out which
// redirects to the same server under the hostname localhost.
func NewSite(t *testing.T) *httptest.Server {
	t.Helper()

	page := func(title, body string) string {
		return fmt.Sprintf("<html><head><title>%s</title></head><body>%s</body></html>", title, body)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page("Home", `<p>Hello world.</p><p>Welcome here.</p>
			<a href="/about#top">About</a>
			<a href="/about#bottom">About again</a>
			<a href="/out">Out</a>
			<a href="https://elsewhere.invalid/">Elsewhere</a>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page("About", `<p>About us.</p><a href="/">Home</a>`))
	})

	var srv *httptest.Server
	mux.HandleFunc("/out", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, strings.Replace(srv.URL, "127.0.0.1", "localhost", 1)+"/about", http.StatusFound)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
