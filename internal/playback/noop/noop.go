package noop

import (
	"context"
	"io"
	"log/slog"

	"github.com/vbonduro/recipecam/internal/playback"
)

var (
	_ playback.Speaker = (*Speaker)(nil)
	_ playback.Player  = (*Player)(nil)
)

// Speaker is used when server-side speech is disabled. Its players only log.
type Speaker struct {
	logger *slog.Logger
}

func NewSpeaker(logger *slog.Logger) *Speaker {
	return &Speaker{logger: logger}
}

func (s *Speaker) NewPlayer(io.Writer) playback.Player {
	return &Player{Gate: playback.NewGate(), logger: s.logger}
}

func (s *Speaker) ContentType() string { return "" }

type Player struct {
	*playback.Gate
	logger *slog.Logger
}

func (p *Player) Speak(ctx context.Context, text string, rate float64) error {
	if err := p.Wait(ctx); err != nil {
		return err
	}
	p.logger.Debug("speech disabled, skipping utterance", "text", text, "rate", rate)
	return nil
}
