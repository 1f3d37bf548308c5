package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// MeasurementCreateRequest is the payload for registering a body measurement.
// All four metrics are required and must be positive.
type MeasurementCreateRequest struct {
	MeasurementDate string          `json:"measurement_date"`
	Weight          decimal.Decimal `json:"weight"`
	MuscleMass      decimal.Decimal `json:"muscle_mass"`
	BodyFat         decimal.Decimal `json:"body_fat"`
	Height          decimal.Decimal `json:"height"`
}

// Validate checks the envelope and returns the parsed measurement date.
// An empty date defaults to today (UTC).
func (r *MeasurementCreateRequest) Validate(now time.Time) (time.Time, error) {
	date := now.UTC().Truncate(24 * time.Hour)
	if r.MeasurementDate != "" {
		parsed, err := time.Parse(DateFormat, r.MeasurementDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid measurement_date %q: %w", r.MeasurementDate, err)
		}
		date = parsed
	}

	for _, m := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"weight", r.Weight},
		{"muscle_mass", r.MuscleMass},
		{"body_fat", r.BodyFat},
		{"height", r.Height},
	} {
		if m.value.LessThanOrEqual(decimal.Zero) {
			return time.Time{}, fmt.Errorf("%s must be positive, got %s", m.name, m.value)
		}
	}

	return date, nil
}

// MeasurementPatchRequest carries a partial correction. Nil fields keep the
// previous version's value; the patch itself appends a new version rather
// than overwriting history.
type MeasurementPatchRequest struct {
	Weight     *decimal.Decimal `json:"weight,omitempty"`
	MuscleMass *decimal.Decimal `json:"muscle_mass,omitempty"`
	BodyFat    *decimal.Decimal `json:"body_fat,omitempty"`
	Height     *decimal.Decimal `json:"height,omitempty"`
}

// Validate rejects non-positive metric values on any provided field.
func (r *MeasurementPatchRequest) Validate() error {
	for _, m := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{"weight", r.Weight},
		{"muscle_mass", r.MuscleMass},
		{"body_fat", r.BodyFat},
		{"height", r.Height},
	} {
		if m.value != nil && m.value.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%s must be positive, got %s", m.name, m.value)
		}
	}
	if r.Weight == nil && r.MuscleMass == nil && r.BodyFat == nil && r.Height == nil {
		return fmt.Errorf("at least one metric must be provided")
	}
	return nil
}

// SnapshotResponse is the resolved current value for one (user, day).
type SnapshotResponse struct {
	RecordID        int64           `json:"record_id"`
	UserID          int64           `json:"user_id"`
	MeasurementDate string          `json:"measurement_date"`
	Weight          decimal.Decimal `json:"weight"`
	MuscleMass      decimal.Decimal `json:"muscle_mass"`
	BodyFat         decimal.Decimal `json:"body_fat"`
	Height          decimal.Decimal `json:"height"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MetricBucketResponse is one bucket of a measurement series. Metrics are
// null (not zero) when no day in the bucket had data.
type MetricBucketResponse struct {
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	SampleCount int                 `json:"sample_count"`
	Weight      decimal.NullDecimal `json:"weight"`
	MuscleMass  decimal.NullDecimal `json:"muscle_mass"`
	BodyFat     decimal.NullDecimal `json:"body_fat"`
	Height      decimal.NullDecimal `json:"height"`
}

// MeasurementSeriesResponse is an ordered (oldest-first) bucketed series.
type MeasurementSeriesResponse struct {
	UserID      int64                  `json:"user_id"`
	EndDate     string                 `json:"end_date"`
	Granularity string                 `json:"granularity"`
	Buckets     []MetricBucketResponse `json:"buckets"`
}
