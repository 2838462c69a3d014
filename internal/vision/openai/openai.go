package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/recipecam/internal/remote"
	"github.com/vbonduro/recipecam/internal/vision"
)

const defaultBaseURL = "https://api.openai.com/v1"

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type message struct {
	Role    string `json:"role"`
	Content []any  `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIExtractor calls the chat completions API, passing the image by URL.
type OpenAIExtractor struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewOpenAIExtractor(apiKey, model, baseURL string) *OpenAIExtractor {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIExtractor{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (e *OpenAIExtractor) Extract(ctx context.Context, imageRef string) (string, error) {
	body := chatRequest{
		Model: e.model,
		Messages: []message{{
			Role: "user",
			Content: []any{
				textPart{Type: "text", Text: vision.ExtractionPrompt},
				imagePart{Type: "image_url", ImageURL: imageURL{URL: imageRef, Detail: "high"}},
			},
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call openai: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close openai response body", "error", err)
		}
	}()

	if err := remote.CheckResponse("openai", resp); err != nil {
		return "", err
	}

	var respBody chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return respBody.Choices[0].Message.Content, nil
}
