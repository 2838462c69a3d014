package cloudinary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/recipecam/internal/remote"
)

func TestCloudinaryUpload(t *testing.T) {
	var got uploadRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"abc","secure_url":"https://res.cloudinary.com/demo/image/upload/abc.jpg"}`))
	}))
	defer server.Close()

	u := NewUploader("demo", "unsigned")
	u.baseURL = server.URL

	imageURL, err := u.Upload(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/abc.jpg", imageURL)
	assert.Equal(t, "unsigned", got.UploadPreset)
	assert.Equal(t, "data:image/jpeg;base64,/9j/", got.File)
}

func TestCloudinaryUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Upload preset not found"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	u := NewUploader("demo", "missing")
	u.baseURL = server.URL

	_, err := u.Upload(context.Background(), []byte{0xFF}, "image/jpeg")
	require.Error(t, err)
	assert.False(t, remote.Retryable(err))
	assert.ErrorContains(t, err, "Upload preset not found")
}

func TestCloudinaryUploadMissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	u := NewUploader("demo", "unsigned")
	u.baseURL = server.URL

	_, err := u.Upload(context.Background(), []byte{0xFF}, "image/jpeg")
	assert.Error(t, err)
}
