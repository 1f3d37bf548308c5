package record

import (
	"time"

	"github.com/shopspring/decimal"
)

// Measurement is one version of a user's body composition entry for a calendar
// day. Multiple rows may share (UserID, MeasurementDate) — each re-entry or
// correction appends a new version instead of overwriting the previous one.
// The current value for a day is the active version with the highest CreatedAt
// (ties broken by highest ID).
type Measurement struct {
	// ID is assigned by the store on append and is strictly increasing.
	ID     int64
	UserID int64

	// MeasurementDate is the calendar day the measurement belongs to,
	// normalized to midnight UTC.
	MeasurementDate time.Time

	// CreatedAt is the version timestamp (server clock at append time).
	CreatedAt time.Time

	Weight     decimal.Decimal // kg
	MuscleMass decimal.Decimal // kg
	BodyFat    decimal.Decimal // percent
	Height     decimal.Decimal // cm

	// Active is the tombstone flag. Once false it never reverts.
	Active    bool
	DeletedAt *time.Time
}

// Exercise is a single exercise session. Unlike measurements, corrections
// mutate the row in place preserving identity; only deletion is versioned
// (via the tombstone flag).
type Exercise struct {
	ID     int64
	UserID int64
	TypeID int64

	// OccurredAt is when the session happened (client clock).
	OccurredAt time.Time

	DurationMinutes int32
	Calories        int32

	// ExternalRef is an optional idempotency key carried by records imported
	// from an external integration. Empty for manual entries.
	ExternalRef string

	CreatedAt time.Time
	UpdatedAt time.Time
	Active    bool
	DeletedAt *time.Time
}

// ExerciseType is static reference data: a concrete exercise with its
// per-minute calorie cost.
type ExerciseType struct {
	ID                int64
	CategoryID        int64
	Name              string
	CaloriesPerMinute int32
}

// ExerciseCategory groups exercise types (e.g. cardio, strength).
type ExerciseCategory struct {
	ID   int64
	Name string
}

// Snapshot is the resolved current value for one (user, calendar day).
// It is derived from the version chain at query time and never persisted.
type Snapshot struct {
	UserID   int64
	Date     time.Time
	RecordID int64

	CreatedAt  time.Time
	Weight     decimal.Decimal
	MuscleMass decimal.Decimal
	BodyFat    decimal.Decimal
	Height     decimal.Decimal
}

// SnapshotOf projects a measurement version into a snapshot.
func SnapshotOf(m Measurement) Snapshot {
	return Snapshot{
		UserID:     m.UserID,
		Date:       m.MeasurementDate,
		RecordID:   m.ID,
		CreatedAt:  m.CreatedAt,
		Weight:     m.Weight,
		MuscleMass: m.MuscleMass,
		BodyFat:    m.BodyFat,
		Height:     m.Height,
	}
}
