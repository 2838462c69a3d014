package cloudinary

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vbonduro/recipecam/internal/imagehost"
	"github.com/vbonduro/recipecam/internal/remote"
)

const defaultAPIURL = "https://api.cloudinary.com/v1_1"

type uploadRequest struct {
	File         string `json:"file"`
	UploadPreset string `json:"upload_preset"`
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// Uploader performs unsigned uploads through an upload preset.
type Uploader struct {
	cloudName string
	preset    string
	client    *http.Client
	baseURL   string
}

func NewUploader(cloudName, preset string) *Uploader {
	return &Uploader{
		cloudName: cloudName,
		preset:    preset,
		client:    &http.Client{},
		baseURL:   defaultAPIURL,
	}
}

func (u *Uploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	payload, err := json.Marshal(uploadRequest{
		File:         imagehost.DataURL(mimeType, base64.StdEncoding.EncodeToString(data)),
		UploadPreset: u.preset,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := u.baseURL + "/" + url.PathEscape(u.cloudName) + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call cloudinary: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close cloudinary response body", "error", err)
		}
	}()

	if err := remote.CheckResponse("cloudinary", resp); err != nil {
		return "", err
	}

	var respBody uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if respBody.SecureURL == "" {
		return "", errors.New("cloudinary response has no secure_url")
	}
	return respBody.SecureURL, nil
}
