package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
)

// ReferenceAdapter implements storage.ReferenceStore on PostgreSQL.
type ReferenceAdapter struct {
	adapter *Adapter
}

// NewReferenceAdapter wraps the shared adapter.
func NewReferenceAdapter(a *Adapter) *ReferenceAdapter {
	return &ReferenceAdapter{adapter: a}
}

func (s *ReferenceAdapter) ListTypes(ctx context.Context) ([]record.ExerciseType, error) {
	rows, err := s.adapter.db.QueryContext(ctx, queryListExerciseTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercise types: %w", err)
	}
	defer rows.Close()

	var out []record.ExerciseType
	for rows.Next() {
		var t record.ExerciseType
		if err := rows.Scan(&t.ID, &t.CategoryID, &t.Name, &t.CaloriesPerMinute); err != nil {
			return nil, fmt.Errorf("failed to scan exercise type: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exercise type iteration failed: %w", err)
	}
	return out, nil
}

func (s *ReferenceAdapter) ListCategories(ctx context.Context) ([]record.ExerciseCategory, error) {
	rows, err := s.adapter.db.QueryContext(ctx, queryListExerciseCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercise categories: %w", err)
	}
	defer rows.Close()

	var out []record.ExerciseCategory
	for rows.Next() {
		var c record.ExerciseCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan exercise category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exercise category iteration failed: %w", err)
	}
	return out, nil
}

// FavoriteAdapter implements storage.FavoriteStore on PostgreSQL.
type FavoriteAdapter struct {
	adapter *Adapter
	nowFn   func() time.Time
}

// NewFavoriteAdapter wraps the shared adapter.
func NewFavoriteAdapter(a *Adapter) *FavoriteAdapter {
	return &FavoriteAdapter{
		adapter: a,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *FavoriteAdapter) ListTypeIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.adapter.db.QueryContext(ctx, queryListFavoriteTypeIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite type id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorite iteration failed: %w", err)
	}
	return out, nil
}

func (s *FavoriteAdapter) Add(ctx context.Context, userID, typeID int64) error {
	if _, err := s.adapter.db.ExecContext(ctx, queryAddFavorite, userID, typeID, s.nowFn()); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *FavoriteAdapter) Remove(ctx context.Context, userID, typeID int64) error {
	res, err := s.adapter.db.ExecContext(ctx, queryRemoveFavorite, userID, typeID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
