package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/recipecam/internal/remote"
	"github.com/vbonduro/recipecam/internal/vision"
)

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

// OllamaExtractor runs a local multimodal model. Ollama takes inline base64
// images, so the hosted image is downloaded first.
type OllamaExtractor struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaExtractor(host, model string) *OllamaExtractor {
	return &OllamaExtractor{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

func (e *OllamaExtractor) Extract(ctx context.Context, imageURL string) (string, error) {
	data, _, err := vision.FetchImage(ctx, e.client, imageURL)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(generateRequest{
		Model:  e.model,
		Prompt: vision.ExtractionPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if err := remote.CheckResponse("ollama", resp); err != nil {
		return "", err
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return respBody.Response, nil
}
