package claude

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

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

// newFakeAnthropic serves both the hosted image and the Messages API.
func newFakeAnthropic(t *testing.T, status int, reply string, got *map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /image.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegHeader)
	})
	mux.HandleFunc("POST /v1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClaudeExtract(t *testing.T) {
	var got map[string]any
	server := newFakeAnthropic(t, http.StatusOK,
		`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5","content":[{"type":"text","text":"{\"ingredients\":\"a\",\"instructions\":\"b\"}"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`,
		&got)

	extractor := newClaudeExtractor("sk-test", "claude-sonnet-4-5", server.URL+"/v1", server.Client())

	raw, err := extractor.Extract(context.Background(), server.URL+"/image.jpg")
	require.NoError(t, err)
	assert.Equal(t, `{"ingredients":"a","instructions":"b"}`, raw)

	assert.Equal(t, "claude-sonnet-4-5", got["model"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	source := content[0].(map[string]any)["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/jpeg", source["media_type"])
	assert.NotEmpty(t, source["data"])
	assert.Equal(t, vision.ExtractionPrompt, content[1].(map[string]any)["text"])
}

func TestClaudeExtractRateLimited(t *testing.T) {
	server := newFakeAnthropic(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, nil)

	extractor := newClaudeExtractor("sk-test", "claude-sonnet-4-5", server.URL+"/v1", server.Client())

	_, err := extractor.Extract(context.Background(), server.URL+"/image.jpg")
	require.Error(t, err)
	assert.True(t, remote.Retryable(err))
}

func TestClaudeExtractInvalidRequest(t *testing.T) {
	server := newFakeAnthropic(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"bad image"}}`, nil)

	extractor := newClaudeExtractor("sk-test", "claude-sonnet-4-5", server.URL+"/v1", server.Client())

	_, err := extractor.Extract(context.Background(), server.URL+"/image.jpg")
	require.Error(t, err)
	assert.False(t, remote.Retryable(err))
}

func TestClaudeExtractImageMissing(t *testing.T) {
	server := newFakeAnthropic(t, http.StatusOK, `{}`, nil)

	extractor := newClaudeExtractor("sk-test", "claude-sonnet-4-5", server.URL+"/v1", server.Client())

	_, err := extractor.Extract(context.Background(), server.URL+"/missing.jpg")
	assert.Error(t, err)
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/webp", normaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", normaliseMIME("image/heic"))
	assert.Equal(t, "image/jpeg", normaliseMIME(""))
}
