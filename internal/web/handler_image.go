package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/recipecam/internal/imagehost/local"
)

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		http.NotFound(w, r)
		return
	}

	rc, mimeType, err := s.images.Open(r.Context(), r.PathValue("key"))
	if errors.Is(err, local.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("failed to open image", "key", r.PathValue("key"), "error", err)
		http.Error(w, "failed to open image", http.StatusInternalServerError)
		return
	}
	defer closeWithLog(rc, "image", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("failed to stream image", "error", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
