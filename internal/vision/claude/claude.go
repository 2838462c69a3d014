package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/recipecam/internal/remote"
	"github.com/vbonduro/recipecam/internal/vision"
)

// maxTokens leaves room for a long recipe card in JSON form.
const maxTokens = 2048

// ClaudeExtractor calls the Anthropic Messages API. The API takes inline image
// bytes, so the hosted image is downloaded first.
type ClaudeExtractor struct {
	client     *anthropic.Client
	model      string
	httpClient *http.Client
}

func NewClaudeExtractor(apiKey, model string) *ClaudeExtractor {
	return newClaudeExtractor(apiKey, model, "", &http.Client{})
}

func newClaudeExtractor(apiKey, model, baseURL string, httpClient *http.Client) *ClaudeExtractor {
	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeExtractor{
		client:     anthropic.NewClient(apiKey, opts...),
		model:      model,
		httpClient: httpClient,
	}
}

func (e *ClaudeExtractor) Extract(ctx context.Context, imageURL string) (string, error) {
	data, mimeType, err := vision.FetchImage(ctx, e.httpClient, imageURL)
	if err != nil {
		return "", err
	}

	resp, err := e.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(e.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.MessageContentSource{
					Type:      anthropic.MessagesContentSourceTypeBase64,
					MediaType: normaliseMIME(mimeType),
					Data:      base64.StdEncoding.EncodeToString(data),
				}),
				anthropic.NewTextMessageContent(vision.ExtractionPrompt),
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", classify(err))
	}

	return resp.GetFirstContentText(), nil
}

// classify maps client errors onto remote.StatusError so the retry policy
// treats every backend alike.
func classify(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		code := http.StatusBadRequest
		switch {
		case apiErr.IsRateLimitErr():
			code = http.StatusTooManyRequests
		case apiErr.IsOverloadedErr(), apiErr.IsApiErr():
			code = http.StatusServiceUnavailable
		}
		return &remote.StatusError{Service: "claude", Code: code, Body: apiErr.Error()}
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		return &remote.StatusError{Service: "claude", Code: reqErr.StatusCode, Body: reqErr.Error()}
	}
	return err
}

// normaliseMIME maps image types onto the set the Messages API accepts.
// Anything unrecognised is sent as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
