package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/vbonduro/recipecam/internal/domain"
	"github.com/vbonduro/recipecam/internal/imagehost"
	"github.com/vbonduro/recipecam/internal/metrics"
	"github.com/vbonduro/recipecam/internal/remote"
	"github.com/vbonduro/recipecam/internal/vision"
)

var ErrJournalDisabled = errors.New("cycle journal is disabled")

// cycleJournal is the subset of store.CycleStore that CaptureService requires.
type cycleJournal interface {
	Create(ctx context.Context, id, state string, startedAt time.Time) error
	Finish(ctx context.Context, rec *domain.CycleRecord) error
	Get(ctx context.Context, id string) (*domain.CycleRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.CycleRecord, error)
	CountByState(ctx context.Context) (map[string]int, error)
}

// Observer is told about every state a cycle enters.
type Observer func(State)

type Options struct {
	StepTimeout time.Duration
	RetryDelay  time.Duration
}

type CaptureService struct {
	uploader    imagehost.Uploader
	extractor   vision.Extractor
	journal     cycleJournal
	stepTimeout time.Duration
	retryDelay  time.Duration
	logger      *slog.Logger
	now         func() time.Time

	busy    atomic.Bool
	mu      sync.RWMutex
	current *Cycle
}

// NewCaptureService wires the capture pipeline. journal may be nil.
func NewCaptureService(
	uploader imagehost.Uploader,
	extractor vision.Extractor,
	journal cycleJournal,
	opts Options,
	logger *slog.Logger,
) *CaptureService {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 60 * time.Second
	}
	return &CaptureService{
		uploader:    uploader,
		extractor:   extractor,
		journal:     journal,
		stepTimeout: opts.StepTimeout,
		retryDelay:  opts.RetryDelay,
		logger:      logger,
		now:         time.Now,
	}
}

// Capture runs one cycle over an already captured image. Only one cycle runs
// at a time; a concurrent call fails with ErrBusy. On failure the returned
// cycle records the state reached and the failure kind.
func (s *CaptureService) Capture(ctx context.Context, image []byte, mimeType string, observe Observer) (*Cycle, error) {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.BusyRejectionsTotal.Inc()
		s.logger.Warn("capture rejected, cycle in flight")
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	metrics.CycleInFlight.Set(1)
	defer metrics.CycleInFlight.Set(0)

	c := &Cycle{ID: uuid.NewString(), State: StateIdle, StartedAt: s.now()}
	logger := s.logger.With("cycle_id", c.ID)
	enter := func(st State) {
		c.State = st
		logger.Debug("cycle state changed", "state", st)
		if observe != nil {
			observe(st)
		}
	}

	logger.Info("capture started", "mime_type", mimeType, "bytes", len(image))
	enter(StateCapturing)
	s.journalCreate(ctx, c, logger)

	err := s.run(ctx, c, image, mimeType, enter, logger)
	c.FinishedAt = s.now()

	if err != nil {
		c.Err = err
		c.Failure = KindOf(err)
		failedIn := c.State
		enter(StateFailed)
		logger.Error("capture failed", "failed_in", failedIn, "failure_kind", c.Failure, "error", err)
		metrics.CyclesTotal.WithLabelValues(string(c.Failure)).Inc()
		s.journalFinish(ctx, c, logger)
		return c, err
	}

	enter(StateReady)
	logger.Info("capture complete",
		"ingredients", len(c.Recipe.Ingredients),
		"instructions", len(c.Recipe.Instructions),
		"duration_ms", c.Duration().Milliseconds(),
	)
	metrics.CyclesTotal.WithLabelValues(string(StateReady)).Inc()
	s.journalFinish(ctx, c, logger)

	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	return c, nil
}

func (s *CaptureService) run(ctx context.Context, c *Cycle, image []byte, mimeType string, enter func(State), logger *slog.Logger) error {
	enter(StateUploading)
	err := s.step(ctx, "upload", logger, func(ctx context.Context) error {
		imageURL, err := s.uploader.Upload(ctx, image, mimeType)
		c.ImageURL = imageURL
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFailure, err)
	}
	logger.Debug("image uploaded", "image_url", c.ImageURL)

	enter(StateRequesting)
	err = s.step(ctx, "request", logger, func(ctx context.Context) error {
		raw, err := s.extractor.Extract(ctx, c.ImageURL)
		c.RawCompletion = raw
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailure, err)
	}
	logger.Debug("completion received", "raw_completion", c.RawCompletion)

	enter(StateNormalizing)
	candidate := vision.Normalize(c.RawCompletion)

	enter(StateParsing)
	rec, err := vision.Parse(candidate)
	if err != nil {
		return err
	}

	enter(StateSplitting)
	parsed := vision.Split(*rec)
	c.Recipe = &parsed
	return nil
}

// step runs a network operation under the step timeout and retries it once
// after retryDelay when the failure is transient.
func (s *CaptureService) step(ctx context.Context, name string, logger *slog.Logger, op func(ctx context.Context) error) error {
	start := time.Now()
	defer func() {
		metrics.StepDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), 1), ctx)
	return backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			metrics.RetriesTotal.WithLabelValues(name).Inc()
			logger.Warn("retrying step", "step", name, "attempt", attempt)
		}

		stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()

		err := op(stepCtx)
		if err != nil && !remote.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// Current returns the most recent ready cycle, or nil.
func (s *CaptureService) Current() *Cycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Busy reports whether a cycle is in flight.
func (s *CaptureService) Busy() bool {
	return s.busy.Load()
}

func (s *CaptureService) HistoryEnabled() bool {
	return s.journal != nil
}

// History returns the newest journal entries and per-state totals.
func (s *CaptureService) History(ctx context.Context, limit int) ([]*domain.CycleRecord, map[string]int, error) {
	if s.journal == nil {
		return nil, nil, ErrJournalDisabled
	}
	cycles, err := s.journal.ListRecent(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.journal.CountByState(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cycles, counts, nil
}

// HistoryEntry returns the journal entry for one cycle, or nil when the id is
// unknown.
func (s *CaptureService) HistoryEntry(ctx context.Context, id string) (*domain.CycleRecord, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.Get(ctx, id)
}

// Journal writes never fail a cycle and outlive a cancelled request.
func (s *CaptureService) journalCreate(ctx context.Context, c *Cycle, logger *slog.Logger) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Create(context.WithoutCancel(ctx), c.ID, string(c.State), c.StartedAt); err != nil {
		logger.Warn("failed to journal cycle start", "error", err)
	}
}

func (s *CaptureService) journalFinish(ctx context.Context, c *Cycle, logger *slog.Logger) {
	if s.journal == nil {
		return
	}
	finished := c.FinishedAt
	rec := &domain.CycleRecord{
		ID:            c.ID,
		State:         string(c.State),
		FailureKind:   string(c.Failure),
		ImageURL:      c.ImageURL,
		RawCompletion: c.RawCompletion,
		StartedAt:     c.StartedAt,
		FinishedAt:    &finished,
	}
	if c.Err != nil {
		rec.ErrorMessage = c.Err.Error()
	}
	if c.Recipe != nil {
		rec.IngredientCount = len(c.Recipe.Ingredients)
		rec.InstructionCount = len(c.Recipe.Instructions)
	}
	if err := s.journal.Finish(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("failed to journal cycle outcome", "error", err)
	}
}
