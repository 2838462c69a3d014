// Package playback reads a recipe aloud through a pluggable speech backend.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/vbonduro/recipecam/internal/vision"
)

const (
	MinRate     = 0.25
	MaxRate     = 4.0
	DefaultRate = 1.0
)

var (
	ErrStopped     = errors.New("playback stopped")
	ErrInvalidRate = fmt.Errorf("rate must be between %.2f and %.2f", MinRate, MaxRate)
)

// Player speaks one utterance at a time. Pause holds the next Speak until
// Resume; after Stop every call fails with ErrStopped.
type Player interface {
	Speak(ctx context.Context, text string, rate float64) error
	Pause() error
	Resume() error
	Stop()
}

// Speaker creates players for one narration each. ContentType is the MIME
// type of the audio written to w, or empty when nothing is written.
type Speaker interface {
	NewPlayer(w io.Writer) Player
	ContentType() string
}

func ValidateRate(rate float64) error {
	if !(rate >= MinRate && rate <= MaxRate) {
		return ErrInvalidRate
	}
	return nil
}

// ParseRate reads a rate from a query value. Empty means DefaultRate.
func ParseRate(s string) (float64, error) {
	if s == "" {
		return DefaultRate, nil
	}
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidRate
	}
	if err := ValidateRate(rate); err != nil {
		return 0, err
	}
	return rate, nil
}

// Script lists the utterances for a recipe in page order.
func Script(recipe vision.ParsedRecipe) []string {
	lines := make([]string, 0, len(recipe.Ingredients)+len(recipe.Instructions)+2)
	lines = append(lines, "Ingredients:")
	lines = append(lines, recipe.Ingredients...)
	lines = append(lines, "Instructions:")
	for i, step := range recipe.Instructions {
		lines = append(lines, fmt.Sprintf("Step %d: %s", i+1, step))
	}
	return lines
}

// Narrate speaks the whole script and stops at the first error.
func Narrate(ctx context.Context, p Player, recipe vision.ParsedRecipe, rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	for _, line := range Script(recipe) {
		if err := p.Speak(ctx, line, rate); err != nil {
			return err
		}
	}
	return nil
}
