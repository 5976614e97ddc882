package preflight

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_CheckEmbedderModel_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "nomic-embed-text"}},
		})
	}))
	defer srv.Close()

	checker := New()
	result := checker.checkEmbedderReachable(srv.URL)

	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "embedder_model", result.Name)
	assert.False(t, result.Required)
	assert.Contains(t, result.Message, "reachable")
}

func TestChecker_CheckEmbedderModel_NoModelsPulled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{}})
	}))
	defer srv.Close()

	checker := New()
	result := checker.checkEmbedderReachable(srv.URL)

	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "no models pulled")
}

func TestChecker_CheckEmbedderModel_Unreachable(t *testing.T) {
	checker := New()
	// Nothing listens on this port.
	result := checker.checkEmbedderReachable("http://127.0.0.1:1")

	assert.Equal(t, StatusWarn, result.Status)
	assert.Equal(t, "embedder_model", result.Name)
	assert.False(t, result.Required, "embedder reachability should not be required")
	assert.Contains(t, result.Message, "unreachable")
}

func TestChecker_CheckEmbedderDiskSpace_ResultFormat(t *testing.T) {
	checker := New()

	result := checker.CheckEmbedderDiskSpace()

	assert.Equal(t, "embedder_disk_space", result.Name)
	assert.False(t, result.Required, "disk space check should not be required")
	assert.NotEmpty(t, result.Message)
}
