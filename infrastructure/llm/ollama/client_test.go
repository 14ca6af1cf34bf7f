package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"graphmem-backend/infrastructure/config"
	pkgerrors "graphmem-backend/pkg/errors"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.OllamaConfig{
		BaseURL: serverURL,
		Model:   "llama3",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestClientGenerate(t *testing.T) {
	t.Run("returns trimmed completion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/generate", r.URL.Path)

			var req generateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "llama3", req.Model)
			assert.False(t, req.Stream)
			assert.Equal(t, "say hello", req.Prompt)

			json.NewEncoder(w).Encode(generateResponse{
				Model:    "llama3",
				Response: "  hello there \n",
				Done:     true,
			})
		}))
		defer server.Close()

		got, err := newTestClient(server.URL).Generate(context.Background(), "say hello")
		require.NoError(t, err)
		assert.Equal(t, "hello there", got)
	})

	t.Run("non-200 status is a generator error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Generate(context.Background(), "say hello")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsGenerator(err))
		assert.Contains(t, err.Error(), "model not found")
	})

	t.Run("empty completion is a generator error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(generateResponse{Response: "   ", Done: true})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Generate(context.Background(), "say hello")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsGenerator(err))
	})

	t.Run("unreachable backend is a generator error", func(t *testing.T) {
		_, err := newTestClient("http://127.0.0.1:1").Generate(context.Background(), "say hello")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsGenerator(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		blocked := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-blocked
		}))
		defer server.Close()
		defer close(blocked)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := newTestClient(server.URL).Generate(ctx, "say hello")
		require.Error(t, err)
	})
}
