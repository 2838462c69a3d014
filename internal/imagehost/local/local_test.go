package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUploadAndOpen(t *testing.T) {
	host, err := NewHost(t.TempDir(), "http://recipecam.local:8080/")
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake png data")

	imageURL, err := host.Upload(ctx, imageData, "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(imageURL, "http://recipecam.local:8080/images/"), imageURL)

	key := strings.TrimPrefix(imageURL, "http://recipecam.local:8080/images/")
	reader, mimeType, err := host.Open(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/png", mimeType)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestLocalOpenNotFound(t *testing.T) {
	host, err := NewHost(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	_, _, err = host.Open(context.Background(), "nonexistent.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalOpenPathTraversal(t *testing.T) {
	host, err := NewHost(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	_, _, err = host.Open(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
