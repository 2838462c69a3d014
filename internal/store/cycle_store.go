package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/recipecam/internal/domain"
)

var ErrCycleNotFound = errors.New("cycle not found")

// CycleStore is the journal of capture cycles.
type CycleStore struct {
	db *sql.DB
}

func NewCycleStore(db *sql.DB) *CycleStore {
	return &CycleStore{db: db}
}

const cycleColumns = `id, state, failure_kind, image_url, raw_completion,
	ingredient_count, instruction_count, error_message, started_at, finished_at`

// Create opens a journal entry for a cycle that has just started.
func (s *CycleStore) Create(ctx context.Context, id, state string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (id, state, started_at) VALUES (?, ?, ?)
	`, id, state, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}
	return nil
}

// Finish records the outcome of a cycle created earlier.
func (s *CycleStore) Finish(ctx context.Context, rec *domain.CycleRecord) error {
	var finishedAt any
	if rec.FinishedAt != nil {
		finishedAt = rec.FinishedAt.UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cycles
		SET state = ?, failure_kind = ?, image_url = ?, raw_completion = ?,
		    ingredient_count = ?, instruction_count = ?, error_message = ?, finished_at = ?
		WHERE id = ?
	`, rec.State, rec.FailureKind, rec.ImageURL, rec.RawCompletion,
		rec.IngredientCount, rec.InstructionCount, rec.ErrorMessage, finishedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to finish cycle: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCycleNotFound
	}
	return nil
}

// Get returns nil, nil when no cycle has the given id.
func (s *CycleStore) Get(ctx context.Context, id string) (*domain.CycleRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, id)

	rec, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return rec, nil
}

// ListRecent returns up to limit cycles, newest first.
func (s *CycleStore) ListRecent(ctx context.Context, limit int) ([]*domain.CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cycleColumns+` FROM cycles ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var cycles []*domain.CycleRecord
	for rows.Next() {
		rec, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}
	return cycles, nil
}

// CountByState returns how many journal entries ended in each state.
func (s *CycleStore) CountByState(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM cycles GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count cycles: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[state] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(sc scanner) (*domain.CycleRecord, error) {
	rec := &domain.CycleRecord{}
	var finishedAt sql.NullTime
	err := sc.Scan(&rec.ID, &rec.State, &rec.FailureKind, &rec.ImageURL, &rec.RawCompletion,
		&rec.IngredientCount, &rec.InstructionCount, &rec.ErrorMessage, &rec.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	return rec, nil
}
