package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/vbonduro/recipecam/internal/metrics"
	"github.com/vbonduro/recipecam/internal/playback"
)

// handleSpeech narrates the current recipe. Audio is streamed as it is
// synthesised; with a speaker that produces no audio the narration runs to
// completion and the response is empty.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	c := s.service.Current()
	if c == nil || c.Recipe == nil {
		http.Error(w, "no recipe captured yet", http.StatusNotFound)
		return
	}
	rate, err := playback.ParseRate(r.URL.Query().Get("rate"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contentType := s.speaker.ContentType()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
	}

	out := &audioWriter{ResponseWriter: w}
	player := s.speaker.NewPlayer(out)
	s.startNarration(player)
	defer s.endNarration(player)

	err = playback.Narrate(r.Context(), player, *c.Recipe, rate)
	switch {
	case err == nil:
		metrics.NarrationsTotal.WithLabelValues("completed").Inc()
	case errors.Is(err, playback.ErrStopped), errors.Is(err, context.Canceled):
		metrics.NarrationsTotal.WithLabelValues("stopped").Inc()
		s.logger.Info("narration stopped", "cycle_id", c.ID)
	default:
		metrics.NarrationsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("narration failed", "cycle_id", c.ID, "error", err, "audio_bytes", out.written)
		if out.written == 0 {
			http.Error(w, "speech backend failed", http.StatusBadGateway)
			return
		}
	}

	if contentType == "" {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSpeechControl(w http.ResponseWriter, r *http.Request) {
	s.narrationMu.Lock()
	player := s.narration
	s.narrationMu.Unlock()

	action := r.PathValue("action")
	switch action {
	case "pause", "resume", "stop":
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	if player == nil {
		http.Error(w, "no active narration", http.StatusNotFound)
		return
	}

	var err error
	switch action {
	case "pause":
		err = player.Pause()
	case "resume":
		err = player.Resume()
	case "stop":
		player.Stop()
	}
	if errors.Is(err, playback.ErrStopped) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Error("speech control failed", "action", action, "error", err)
		http.Error(w, "speech control failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// startNarration makes p the active narration, stopping any previous one.
func (s *Server) startNarration(p playback.Player) {
	s.narrationMu.Lock()
	prev := s.narration
	s.narration = p
	s.narrationMu.Unlock()
	if prev != nil {
		prev.Stop()
	}
}

// endNarration clears p if it is still the active narration.
func (s *Server) endNarration(p playback.Player) {
	s.narrationMu.Lock()
	if s.narration == p {
		s.narration = nil
	}
	s.narrationMu.Unlock()
	p.Stop()
}

func (s *Server) stopNarration() {
	s.narrationMu.Lock()
	p := s.narration
	s.narration = nil
	s.narrationMu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// audioWriter counts the audio bytes sent so a narration that fails before
// producing any sound can still report an error status.
type audioWriter struct {
	http.ResponseWriter
	written int64
}

func (a *audioWriter) Write(p []byte) (int, error) {
	n, err := a.ResponseWriter.Write(p)
	a.written += int64(n)
	return n, err
}

func (a *audioWriter) Flush() {
	if f, ok := a.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
