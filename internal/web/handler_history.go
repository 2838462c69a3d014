package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/recipecam/internal/domain"
	"github.com/vbonduro/recipecam/internal/service"
)

const historyLimit = 50

type historyData struct {
	Cycles []*domain.CycleRecord
	Counts map[string]int
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	cycles, counts, err := s.service.History(r.Context(), historyLimit)
	if errors.Is(err, service.ErrJournalDisabled) {
		http.Error(w, "history is not enabled", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	if err := s.renderPage(w, historyData{Cycles: cycles, Counts: counts}, "base.html", "pages/history.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.HistoryEntry(r.Context(), r.PathValue("id"))
	if errors.Is(err, service.ErrJournalDisabled) {
		http.Error(w, "history is not enabled", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to load cycle", "cycle_id", r.PathValue("id"), "error", err)
		http.Error(w, "failed to load cycle", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "cycle not found", http.StatusNotFound)
		return
	}

	if err := s.renderPage(w, entry, "base.html", "pages/cycle.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
