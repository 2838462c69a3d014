package openaitts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/recipecam/internal/playback"
	"github.com/vbonduro/recipecam/internal/remote"
)

const defaultBaseURL = "https://api.openai.com/v1"

var (
	_ playback.Speaker = (*Speaker)(nil)
	_ playback.Player  = (*Player)(nil)
)

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
}

// Speaker synthesises speech with the OpenAI audio API and streams mp3 audio.
type Speaker struct {
	apiKey  string
	model   string
	voice   string
	client  *http.Client
	baseURL string
}

func NewSpeaker(apiKey, model, voice, baseURL string) *Speaker {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Speaker{
		apiKey:  apiKey,
		model:   model,
		voice:   voice,
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *Speaker) ContentType() string { return "audio/mpeg" }

func (s *Speaker) NewPlayer(w io.Writer) playback.Player {
	return &Player{Gate: playback.NewGate(), speaker: s, w: w}
}

// Player writes each utterance to w as it is synthesised.
type Player struct {
	*playback.Gate
	speaker *Speaker
	w       io.Writer
}

func (p *Player) Speak(ctx context.Context, text string, rate float64) error {
	if err := p.Wait(ctx); err != nil {
		return err
	}
	if err := playback.ValidateRate(rate); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Stop aborts the request in flight.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := p.speaker.synthesise(ctx, text, rate, p.w)
	if err != nil && ctx.Err() != nil {
		select {
		case <-p.Done():
			return playback.ErrStopped
		default:
		}
	}
	return err
}

func (s *Speaker) synthesise(ctx context.Context, text string, rate float64, w io.Writer) error {
	payload, err := json.Marshal(speechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		Speed:          rate,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call openai speech: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close speech response body", "error", err)
		}
	}()

	if err := remote.CheckResponse("openai speech", resp); err != nil {
		return err
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to stream audio: %w", err)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
