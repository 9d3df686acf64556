package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestEmbedderClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, "renewal pricing", req.Input)

		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	client := NewEmbedderClient(server.URL, "text-embedding-3-small", "test-key", 5*time.Second, testLogger())

	vec, err := client.Embed(context.Background(), "renewal pricing")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedderClient_Embed_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewEmbedderClient(server.URL, "text-embedding-3-small", "test-key", 5*time.Second, testLogger())

	_, err := client.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestEmbedderClient_Embed_EmptyData(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no_data", `{"data":[]}`},
		{"empty_vector", `{"data":[{"embedding":[]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewEmbedderClient(server.URL, "text-embedding-3-small", "test-key", 5*time.Second, testLogger())

			_, err := client.Embed(context.Background(), "q")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "no vector")
		})
	}
}

func TestEmbedderClient_Embed_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewEmbedderClient(server.URL, "text-embedding-3-small", "test-key", 5*time.Second, testLogger())

	_, err := client.Embed(context.Background(), "q")
	require.Error(t, err)
}
