package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/recipecam/internal/vision"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0}

func newFakeOllama(t *testing.T, generate http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /card.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegHeader)
	})
	mux.HandleFunc("POST /api/generate", generate)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestOllamaExtract(t *testing.T) {
	var req generateRequest
	server := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llava","response":"{\"ingredients\":\"Milk\",\"instructions\":\"Pour\"}","done":true}`))
	})

	extractor := NewOllamaExtractor(server.URL+"/", "llava")

	raw, err := extractor.Extract(context.Background(), server.URL+"/card.jpg")
	require.NoError(t, err)
	assert.Equal(t, `{"ingredients":"Milk","instructions":"Pour"}`, raw)

	assert.Equal(t, "llava", req.Model)
	assert.Equal(t, vision.ExtractionPrompt, req.Prompt)
	assert.False(t, req.Stream)
	require.Len(t, req.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(jpegHeader), req.Images[0])
}

func TestOllamaExtractNetworkError(t *testing.T) {
	extractor := NewOllamaExtractor("http://localhost:99999", "llava")

	_, err := extractor.Extract(context.Background(), "http://localhost:99999/card.jpg")
	assert.Error(t, err)
}

func TestOllamaExtractServerError(t *testing.T) {
	server := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	extractor := NewOllamaExtractor(server.URL, "llava")

	_, err := extractor.Extract(context.Background(), server.URL+"/card.jpg")
	assert.ErrorContains(t, err, "ollama returned status 500")
}

func TestOllamaExtractInvalidResponse(t *testing.T) {
	server := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	extractor := NewOllamaExtractor(server.URL, "llava")

	_, err := extractor.Extract(context.Background(), server.URL+"/card.jpg")
	assert.Error(t, err)
}
