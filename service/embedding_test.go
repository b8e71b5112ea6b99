package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"semchat/platform"
)

func testConfig(baseURL string) *platform.EmbeddingConfig {
	return &platform.EmbeddingConfig{
		BaseURL: baseURL,
		Model:   "nomic-embed-text",
		Timeout: 2 * time.Second,
	}
}

func TestGenerateParsesProviderResponse(t *testing.T) {
	var gotRequest embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	svc := NewEmbeddingService(testConfig(server.URL))
	vector, ok := svc.Generate(context.Background(), "database performance")
	require.True(t, ok)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	require.Equal(t, "nomic-embed-text", gotRequest.Model)
	require.Equal(t, "database performance", gotRequest.Prompt)
}

func TestGenerateShortCircuitsShortText(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	svc := NewEmbeddingService(testConfig(server.URL))
	for _, text := range []string{"", "a", "ab", "  ab  ", "\n\t"} {
		vector, ok := svc.Generate(context.Background(), text)
		require.False(t, ok)
		require.Nil(t, vector)
	}
	require.Equal(t, 0, calls)
}

func TestGenerateAbsorbsProviderFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		},
		"missing embedding field": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"something":"else"}`))
		},
		"empty embedding": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"embedding":[]}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			svc := NewEmbeddingService(testConfig(server.URL))
			vector, ok := svc.Generate(context.Background(), "long enough text")
			require.False(t, ok)
			require.Nil(t, vector)
		})
	}
}

func TestGenerateAbsorbsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	svc := NewEmbeddingService(testConfig(server.URL))
	_, ok := svc.Generate(context.Background(), "long enough text")
	require.False(t, ok)
}

func TestNormalizeForEmbeddingStripsHTML(t *testing.T) {
	normalized := NormalizeForEmbedding("<p>How do I tune <b>database</b> indexes?</p>")
	require.NotContains(t, normalized, "<p>")
	require.NotContains(t, normalized, "<b>")
	require.Contains(t, normalized, "database")
}

func TestNormalizeForEmbeddingPassesPlainText(t *testing.T) {
	require.Equal(t, "plain text message", NormalizeForEmbedding("plain text message"))
	require.Equal(t, "a < b and c > d", NormalizeForEmbedding("a < b and c > d"))
}
