package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
)

// ExerciseAdapter implements storage.ExerciseStore on PostgreSQL.
type ExerciseAdapter struct {
	adapter *Adapter
	nowFn   func() time.Time
}

// NewExerciseAdapter wraps the shared adapter.
func NewExerciseAdapter(a *Adapter) *ExerciseAdapter {
	return &ExerciseAdapter{
		adapter: a,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *ExerciseAdapter) Insert(ctx context.Context, e *record.Exercise) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.nowFn()
	}
	e.UpdatedAt = e.CreatedAt
	e.Active = true

	err := s.adapter.stmtInsertExercise.QueryRowContext(ctx,
		e.UserID, e.TypeID, e.OccurredAt, e.DurationMinutes, e.Calories,
		e.ExternalRef, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert exercise: %w", err)
	}
	return nil
}

func (s *ExerciseAdapter) Get(ctx context.Context, userID, id int64) (*record.Exercise, error) {
	row := s.adapter.db.QueryRowContext(ctx, queryGetExercise, userID, id)
	e, err := scanExercise(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exercise %d: %w", id, err)
	}
	return e, nil
}

func (s *ExerciseAdapter) Update(ctx context.Context, e *record.Exercise) error {
	e.UpdatedAt = s.nowFn()

	res, err := s.adapter.db.ExecContext(ctx, queryUpdateExercise,
		e.UserID, e.ID, e.OccurredAt, e.DurationMinutes, e.Calories, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update exercise %d: %w", e.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from tombstoned for the caller.
		var deleted bool
		err := s.adapter.db.QueryRowContext(ctx, queryExerciseDeleted, e.UserID, e.ID).Scan(&deleted)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("failed to check exercise %d: %w", e.ID, err)
		}
		if deleted {
			return storage.ErrTombstoned
		}
		return storage.ErrNotFound
	}
	return nil
}

func (s *ExerciseAdapter) Tombstone(ctx context.Context, userID, id int64) error {
	var deleted bool
	err := s.adapter.db.QueryRowContext(ctx, queryExerciseDeleted, userID, id).Scan(&deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to check exercise %d: %w", id, err)
	}
	if deleted {
		return storage.ErrTombstoned
	}

	res, err := s.adapter.db.ExecContext(ctx, queryTombstoneExercise, userID, id, s.nowFn())
	if err != nil {
		return fmt.Errorf("failed to tombstone exercise %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrTombstoned
	}
	return nil
}

func (s *ExerciseAdapter) RangeQuery(ctx context.Context, userID int64, from, until time.Time) ([]record.Exercise, error) {
	rows, err := s.adapter.stmtExerciseRange.QueryContext(ctx, userID, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercise range: %w", err)
	}
	return collectExercises(rows)
}

func (s *ExerciseAdapter) ListByUser(ctx context.Context, userID int64) ([]record.Exercise, error) {
	rows, err := s.adapter.db.QueryContext(ctx, queryExerciseByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	return collectExercises(rows)
}

func (s *ExerciseAdapter) ExistingExternalRefs(ctx context.Context, userID int64, refs []string, since time.Time) (map[string]struct{}, error) {
	if len(refs) == 0 {
		return map[string]struct{}{}, nil
	}

	rows, err := s.adapter.db.QueryContext(ctx, queryExistingExternalRefs,
		userID, pq.Array(refs), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing external refs: %w", err)
	}
	defer rows.Close()

	found := make(map[string]struct{})
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan external ref: %w", err)
		}
		found[ref] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("external ref iteration failed: %w", err)
	}
	return found, nil
}
