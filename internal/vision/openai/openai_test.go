package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/recipecam/internal/remote"
	"github.com/vbonduro/recipecam/internal/vision"
)

func TestOpenAIExtract(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + "```json" + `\n{}\n` + "```" + `"}}]}`))
	}))
	defer server.Close()

	extractor := NewOpenAIExtractor("sk-test", "gpt-4o", server.URL+"/")

	raw, err := extractor.Extract(context.Background(), "https://img.example/recipe.jpg")
	require.NoError(t, err)
	assert.Equal(t, "```json\n{}\n```", raw)

	assert.Equal(t, "gpt-4o", got["model"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	text := content[0].(map[string]any)
	assert.Equal(t, vision.ExtractionPrompt, text["text"])

	image := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "https://img.example/recipe.jpg", image["url"])
	assert.Equal(t, "high", image["detail"])
}

func TestOpenAIExtractAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	extractor := NewOpenAIExtractor("sk-test", "gpt-4o", server.URL)

	_, err := extractor.Extract(context.Background(), "https://img.example/recipe.jpg")
	require.Error(t, err)
	assert.True(t, remote.Retryable(err))
}

func TestOpenAIExtractNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	extractor := NewOpenAIExtractor("sk-test", "gpt-4o", server.URL)

	_, err := extractor.Extract(context.Background(), "https://img.example/recipe.jpg")
	assert.Error(t, err)
}
