package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/recipecam/internal/imagehost"
)

var ErrNotFound = errors.New("image not found")

// Host keeps captures on local disk. The service serves them itself under
// /images/{key}, so PUBLIC_BASE_URL must be reachable by the extraction backend.
type Host struct {
	basePath string
	baseURL  string
}

func NewHost(basePath, publicBaseURL string) (*Host, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Host{
		basePath: basePath,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (h *Host) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	key := uuid.NewString() + imagehost.ExtForMIME(mimeType)
	filePath := filepath.Join(h.basePath, key)

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		if rerr := os.Remove(filePath); rerr != nil && !os.IsNotExist(rerr) {
			slog.Error("failed to remove partial image", "error", rerr)
		}
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return h.baseURL + "/images/" + key, nil
}

// Open returns the stored image for key and its MIME type.
func (h *Host) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := h.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	return f, imagehost.MIMEForExt(filePath), nil
}

// safeJoin resolves key under basePath and rejects directory traversal.
func (h *Host) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(h.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(h.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", errors.New("path traversal attempt")
	}
	return absPath, nil
}
