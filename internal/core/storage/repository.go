package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vitalog-lab/vitalog/internal/core/record"
)

// ErrNotFound is returned when no record matches the given id/user.
var ErrNotFound = errors.New("record not found")

// ErrTombstoned is returned when an operation targets a record that has
// already been soft-deleted. Tombstoning is one-way: the second delete is a
// reported condition, not a silent no-op.
var ErrTombstoned = errors.New("record already deleted")

// MeasurementStore is the versioned-record contract for body measurements.
// Range and point queries return ALL active versions in range, unresolved:
// picking the authoritative version per day is the snapshot resolver's job,
// which keeps this boundary testable against an in-memory fake.
type MeasurementStore interface {
	// Append persists a new record version, assigning ID and CreatedAt.
	Append(ctx context.Context, m *record.Measurement) error

	// Get fetches one version by id, including tombstoned ones.
	Get(ctx context.Context, userID, id int64) (*record.Measurement, error)

	// Tombstone flips the record's active flag, permanently.
	// Returns ErrTombstoned if it was already flipped.
	Tombstone(ctx context.Context, userID, id int64) error

	// RangeQuery returns all active versions with measurement date in
	// [from, to], ordered by (measurement_date, created_at, id).
	RangeQuery(ctx context.Context, userID int64, from, to time.Time) ([]record.Measurement, error)

	// PointLookup returns all active versions for exactly one calendar day.
	PointLookup(ctx context.Context, userID int64, date time.Time) ([]record.Measurement, error)

	// PriorLookup returns active versions with measurement date <= date,
	// ordered by (measurement_date desc, created_at desc, id desc), for
	// carry-forward resolution.
	PriorLookup(ctx context.Context, userID int64, date time.Time) ([]record.Measurement, error)
}

// ExerciseStore persists exercise sessions. Corrections update in place
// preserving identity; deletion tombstones.
type ExerciseStore interface {
	Insert(ctx context.Context, e *record.Exercise) error
	Get(ctx context.Context, userID, id int64) (*record.Exercise, error)
	Update(ctx context.Context, e *record.Exercise) error
	Tombstone(ctx context.Context, userID, id int64) error

	// RangeQuery returns active sessions with occurred_at in [from, until),
	// ordered by occurred_at.
	RangeQuery(ctx context.Context, userID int64, from, until time.Time) ([]record.Exercise, error)

	// ListByUser returns all active sessions, newest first.
	ListByUser(ctx context.Context, userID int64) ([]record.Exercise, error)

	// ExistingExternalRefs reports which of the given external reference keys
	// already exist among the user's active sessions created at or after
	// since. Used by the bulk-import dedup guard.
	ExistingExternalRefs(ctx context.Context, userID int64, refs []string, since time.Time) (map[string]struct{}, error)
}

// ReferenceStore is the bulk fetch for static exercise reference data.
// Callers load it once per resolution call and index it into maps.
type ReferenceStore interface {
	ListTypes(ctx context.Context) ([]record.ExerciseType, error)
	ListCategories(ctx context.Context) ([]record.ExerciseCategory, error)
}

// FavoriteStore tracks which exercise types a user has starred.
type FavoriteStore interface {
	// ListTypeIDs returns the user's favorite type ids for a per-call set.
	ListTypeIDs(ctx context.Context, userID int64) ([]int64, error)
	Add(ctx context.Context, userID, typeID int64) error
	Remove(ctx context.Context, userID, typeID int64) error
}
