package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
)

func TestExerciseAdapter_Insert(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	store := NewExerciseAdapter(adapter)
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	store.nowFn = func() time.Time { return now }

	e := &record.Exercise{
		UserID:          7,
		TypeID:          3,
		OccurredAt:      now.Add(-time.Hour),
		DurationMinutes: 40,
		Calories:        320,
		ExternalRef:     "9f1c8a30-2a67-4c2b-9e7a-6f3b1f0a1d2e",
	}

	mock.ExpectQuery(regexp.QuoteMeta(queryInsertExercise)).
		WithArgs(int64(7), int64(3), e.OccurredAt, int32(40), int32(320),
			e.ExternalRef, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(55)))

	err := store.Insert(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, int64(55), e.ID)
	require.Equal(t, now, e.CreatedAt)
	require.Equal(t, now, e.UpdatedAt)
	require.True(t, e.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExerciseAdapter_Update(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		mockResult func(mock sqlmock.Sqlmock)
		wantErr    error
	}{
		{
			name: "success",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(queryUpdateExercise)).
					WithArgs(int64(7), int64(55), sqlmock.AnyArg(), int32(45), int32(360), now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "tombstoned record rejects the update",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(queryUpdateExercise)).
					WithArgs(int64(7), int64(55), sqlmock.AnyArg(), int32(45), int32(360), now).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(queryExerciseDeleted)).
					WithArgs(int64(7), int64(55)).
					WillReturnRows(sqlmock.NewRows([]string{"is_deleted"}).AddRow(true))
			},
			wantErr: storage.ErrTombstoned,
		},
		{
			name: "missing record maps to ErrNotFound",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(queryUpdateExercise)).
					WithArgs(int64(7), int64(55), sqlmock.AnyArg(), int32(45), int32(360), now).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(queryExerciseDeleted)).
					WithArgs(int64(7), int64(55)).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: storage.ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			store := NewExerciseAdapter(adapter)
			store.nowFn = func() time.Time { return now }

			tc.mockResult(mock)

			e := &record.Exercise{
				ID:              55,
				UserID:          7,
				OccurredAt:      now.Add(-time.Hour),
				DurationMinutes: 45,
				Calories:        360,
			}
			err := store.Update(context.Background(), e)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, now, e.UpdatedAt)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExerciseAdapter_RangeQuery(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	store := NewExerciseAdapter(adapter)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 7)
	createdAt := from.Add(10 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryExerciseRange)).
		WithArgs(int64(7), from, until).
		WillReturnRows(sqlmock.NewRows(exerciseRowColumns()).
			AddRow(int64(55), int64(7), int64(3), from.Add(9*time.Hour),
				int32(40), int32(320), "", createdAt, createdAt, false, nil),
		).RowsWillBeClosed()

	sessions, err := store.RangeQuery(context.Background(), 7, from, until)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, int64(55), sessions[0].ID)
	require.Equal(t, "", sessions[0].ExternalRef)
	require.True(t, sessions[0].Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExerciseAdapter_ExistingExternalRefs(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	store := NewExerciseAdapter(adapter)

	since := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	refs := []string{
		"9f1c8a30-2a67-4c2b-9e7a-6f3b1f0a1d2e",
		"0a2d7b41-3b78-4d3c-8f8b-7a4c2e1b0f3d",
	}

	mock.ExpectQuery(regexp.QuoteMeta(queryExistingExternalRefs)).
		WithArgs(int64(7), pq.Array(refs), since).
		WillReturnRows(sqlmock.NewRows([]string{"external_ref"}).
			AddRow(refs[0]),
		).RowsWillBeClosed()

	found, err := store.ExistingExternalRefs(context.Background(), 7, refs, since)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Contains(t, found, refs[0])
	require.NotContains(t, found, refs[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExerciseAdapter_ExistingExternalRefsEmptyInput(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	store := NewExerciseAdapter(adapter)

	found, err := store.ExistingExternalRefs(context.Background(), 7, nil, time.Now())
	require.NoError(t, err)
	require.Empty(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteAdapter_RemoveNotFound(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	store := NewFavoriteAdapter(adapter)

	mock.ExpectExec(regexp.QuoteMeta(queryRemoveFavorite)).
		WithArgs(int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Remove(context.Background(), 7, 3)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceAdapter_ListTypes(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	store := NewReferenceAdapter(adapter)

	mock.ExpectQuery(regexp.QuoteMeta(queryListExerciseTypes)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "name", "calories_per_minute"}).
			AddRow(int64(1), int64(1), "Running", int32(11)).
			AddRow(int64(2), int64(2), "Deadlift", int32(6)),
		).RowsWillBeClosed()

	types, err := store.ListTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	require.Equal(t, "Running", types[0].Name)
	require.Equal(t, int64(2), types[1].CategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func exerciseRowColumns() []string {
	return []string{
		"id",
		"user_id",
		"type_id",
		"occurred_at",
		"duration_minutes",
		"calories",
		"external_ref",
		"created_at",
		"updated_at",
		"is_deleted",
		"deleted_at",
	}
}
