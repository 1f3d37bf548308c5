package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
)

// MeasurementAdapter implements storage.MeasurementStore on PostgreSQL.
type MeasurementAdapter struct {
	adapter *Adapter
	nowFn   func() time.Time
}

// NewMeasurementAdapter wraps the shared adapter.
func NewMeasurementAdapter(a *Adapter) *MeasurementAdapter {
	return &MeasurementAdapter{
		adapter: a,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MeasurementAdapter) Append(ctx context.Context, m *record.Measurement) error {
	m.MeasurementDate = calendar.Day(m.MeasurementDate)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.nowFn()
	}
	m.Active = true

	err := s.adapter.stmtAppendMeasurement.QueryRowContext(ctx,
		m.UserID, m.MeasurementDate, m.CreatedAt,
		m.Weight, m.MuscleMass, m.BodyFat, m.Height,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to append measurement: %w", err)
	}
	return nil
}

func (s *MeasurementAdapter) Get(ctx context.Context, userID, id int64) (*record.Measurement, error) {
	row := s.adapter.db.QueryRowContext(ctx, queryGetMeasurement, userID, id)
	m, err := scanMeasurement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get measurement %d: %w", id, err)
	}
	return m, nil
}

func (s *MeasurementAdapter) Tombstone(ctx context.Context, userID, id int64) error {
	var deleted bool
	err := s.adapter.db.QueryRowContext(ctx, queryMeasurementDeleted, userID, id).Scan(&deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to check measurement %d: %w", id, err)
	}
	if deleted {
		return storage.ErrTombstoned
	}

	res, err := s.adapter.db.ExecContext(ctx, queryTombstoneMeasurement, userID, id, s.nowFn())
	if err != nil {
		return fmt.Errorf("failed to tombstone measurement %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Lost the race against a concurrent delete.
		return storage.ErrTombstoned
	}
	return nil
}

func (s *MeasurementAdapter) RangeQuery(ctx context.Context, userID int64, from, to time.Time) ([]record.Measurement, error) {
	rows, err := s.adapter.stmtMeasurementRange.QueryContext(ctx,
		userID, calendar.Day(from), calendar.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query measurement range: %w", err)
	}
	return collectMeasurements(rows)
}

func (s *MeasurementAdapter) PointLookup(ctx context.Context, userID int64, date time.Time) ([]record.Measurement, error) {
	day := calendar.Day(date)
	rows, err := s.adapter.stmtMeasurementRange.QueryContext(ctx, userID, day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurement point: %w", err)
	}
	return collectMeasurements(rows)
}

func (s *MeasurementAdapter) PriorLookup(ctx context.Context, userID int64, date time.Time) ([]record.Measurement, error) {
	rows, err := s.adapter.stmtMeasurementPrior.QueryContext(ctx,
		userID, calendar.Day(date), priorLookupLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query prior measurements: %w", err)
	}
	return collectMeasurements(rows)
}
