package service

import (
	"errors"
	"time"

	"github.com/vbonduro/recipecam/internal/vision"
)

type State string

const (
	StateIdle        State = "idle"
	StateCapturing   State = "capturing"
	StateUploading   State = "uploading"
	StateRequesting  State = "requesting"
	StateNormalizing State = "normalizing"
	StateParsing     State = "parsing"
	StateSplitting   State = "splitting"
	StateReady       State = "ready"
	StateFailed      State = "failed"
)

// Terminal reports whether s ends a cycle.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureUpload    FailureKind = "upload_failure"
	FailureRequest   FailureKind = "request_failure"
	FailureMalformed FailureKind = "malformed_response"
	FailureSchema    FailureKind = "schema_mismatch"
	FailureUnknown   FailureKind = "unknown"
)

var (
	ErrUploadFailure  = errors.New("image upload failed")
	ErrRequestFailure = errors.New("extraction request failed")
	ErrBusy           = errors.New("a capture is already in progress")
)

// KindOf classifies a cycle error. Nil maps to FailureNone.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrUploadFailure):
		return FailureUpload
	case errors.Is(err, ErrRequestFailure):
		return FailureRequest
	case errors.Is(err, vision.ErrMalformedResponse):
		return FailureMalformed
	case errors.Is(err, vision.ErrSchemaMismatch):
		return FailureSchema
	default:
		return FailureUnknown
	}
}

// Cycle is one pass of the capture state machine.
type Cycle struct {
	ID            string
	State         State
	Failure       FailureKind
	ImageURL      string
	RawCompletion string
	Recipe        *vision.ParsedRecipe
	Err           error
	StartedAt     time.Time
	FinishedAt    time.Time
}

func (c *Cycle) Duration() time.Duration {
	if c.FinishedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}
