package postgres

import (
	"database/sql"
	"fmt"

	"github.com/vitalog-lab/vitalog/internal/core/record"
)

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row rowScanner) (*record.Measurement, error) {
	var (
		m         record.Measurement
		isDeleted bool
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.UserID, &m.MeasurementDate, &m.CreatedAt,
		&m.Weight, &m.MuscleMass, &m.BodyFat, &m.Height,
		&isDeleted, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Active = !isDeleted
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	m.MeasurementDate = m.MeasurementDate.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func collectMeasurements(rows *sql.Rows) ([]record.Measurement, error) {
	defer rows.Close()

	var out []record.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measurement row: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("measurement row iteration failed: %w", err)
	}
	return out, nil
}

func scanExercise(row rowScanner) (*record.Exercise, error) {
	var (
		e         record.Exercise
		isDeleted bool
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.TypeID, &e.OccurredAt,
		&e.DurationMinutes, &e.Calories, &e.ExternalRef,
		&e.CreatedAt, &e.UpdatedAt, &isDeleted, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Active = !isDeleted
	if deletedAt.Valid {
		t := deletedAt.Time
		e.DeletedAt = &t
	}
	e.OccurredAt = e.OccurredAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func collectExercises(rows *sql.Rows) ([]record.Exercise, error) {
	defer rows.Close()

	var out []record.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exercise row iteration failed: %w", err)
	}
	return out, nil
}
