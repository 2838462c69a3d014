package domain

import "time"

// CycleRecord is the journal entry for one capture cycle. It holds counts
// rather than the recipe itself; recipes are never persisted.
type CycleRecord struct {
	ID               string
	State            string
	FailureKind      string
	ImageURL         string
	RawCompletion    string
	IngredientCount  int
	InstructionCount int
	ErrorMessage     string
	StartedAt        time.Time
	FinishedAt       *time.Time
}

// Duration is how long the cycle ran, or zero if it has not finished.
func (r *CycleRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
