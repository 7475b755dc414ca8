package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"ragindexer/internal/adapter/gemini"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestEmbedder_Embed(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var path string
		ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"embedding": map[string]interface{}{"values": []float32{0.1, 0.2, 0.3}},
			})
		})

		e, err := gemini.NewEmbedder(ctx, "test-key", "", option.WithEndpoint(ts.URL))
		require.NoError(t, err)
		defer e.Close()

		vec, err := e.Embed(ctx, "hello world")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
		assert.Equal(t, gemini.DefaultModel, e.Model())
		assert.True(t, strings.Contains(path, gemini.DefaultModel), path)
	})

	t.Run("Empty Embedding", func(t *testing.T) {
		ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"embedding": map[string]interface{}{"values": []float32{}},
			})
		})

		e, err := gemini.NewEmbedder(ctx, "test-key", "custom-model", option.WithEndpoint(ts.URL))
		require.NoError(t, err)
		defer e.Close()

		vec, err := e.Embed(ctx, "hello")
		assert.Error(t, err)
		assert.Nil(t, vec)
		assert.Equal(t, "custom-model", e.Model())
	})

	t.Run("Backend Rejects Request", func(t *testing.T) {
		ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad input","status":"INVALID_ARGUMENT"}}`))
		})

		e, err := gemini.NewEmbedder(ctx, "test-key", "", option.WithEndpoint(ts.URL))
		require.NoError(t, err)
		defer e.Close()

		_, err = e.Embed(ctx, "hello")
		assert.Error(t, err)
	})
}
