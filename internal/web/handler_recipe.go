package web

import (
	"encoding/json"
	"net/http"

	"github.com/vbonduro/recipecam/internal/service"
)

type recipeView struct {
	CycleID      string   `json:"cycle_id"`
	ImageURL     string   `json:"image_url,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

func newRecipeView(c *service.Cycle) *recipeView {
	if c == nil || c.Recipe == nil {
		return nil
	}
	return &recipeView{
		CycleID:      c.ID,
		ImageURL:     c.ImageURL,
		Ingredients:  c.Recipe.Ingredients,
		Instructions: c.Recipe.Instructions,
	}
}

type indexData struct {
	Recipe         *recipeView
	RateControls   bool
	HistoryEnabled bool
	Busy           bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Recipe:         newRecipeView(s.service.Current()),
		RateControls:   s.opts.PlaybackRateControls,
		HistoryEnabled: s.service.HistoryEnabled(),
		Busy:           s.service.Busy(),
	}
	if err := s.renderPage(w, data, "base.html", "pages/capture.html", "partials/recipe.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	view := newRecipeView(s.service.Current())
	if view == nil {
		http.Error(w, "no recipe captured yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.Error("encode recipe failed", "error", err)
	}
}
