package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nexuserrors "github.com/nexus-search/nexus/internal/errors"
)

func newTestOllamaServer(t *testing.T, embedHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OllamaModelListResponse{
			Models: []OllamaModelInfo{{Name: "qwen3-embedding:0.6b"}},
		})
	})
	mux.HandleFunc("/api/embed", embedHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_EmbedSingle(t *testing.T) {
	srv := newTestOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{Embeddings: [][]float64{{1, 0, 0}}})
	})

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Dimensions = 3

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestOllamaEmbedder_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	srv := newTestOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Dimensions = 3
	cfg.MaxRetries = 1

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()
	e.breaker = nexuserrors.NewCircuitBreaker("test-ollama-embed",
		nexuserrors.WithMaxFailures(2),
		nexuserrors.WithResetTimeout(time.Minute))

	_, err = e.Embed(context.Background(), "hello")
	assert.Error(t, err)
	_, err = e.Embed(context.Background(), "hello")
	assert.Error(t, err)

	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, nexuserrors.ErrCircuitOpen, "circuit should trip after repeated upstream failures")
}
