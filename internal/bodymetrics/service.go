package bodymetrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/vitalog-lab/vitalog/internal/api/v1"
	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/snapshot"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
	"github.com/vitalog-lab/vitalog/internal/core/window"
	"github.com/vitalog-lab/vitalog/internal/notify"
	"github.com/vitalog-lab/vitalog/internal/observability"
)

// ErrInvalidRequest marks request validation errors that map to HTTP 400.
var ErrInvalidRequest = errors.New("invalid body metrics request")

// minValidDate is the floor for measurement dates. Entries before it are
// rejected as client mistakes (a mistyped year, usually).
var minValidDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Service owns the body measurement write and read paths: versioned appends,
// tombstone deletes, per-day snapshot resolution and windowed series.
type Service struct {
	store    storage.MeasurementStore
	notifier notify.Notifier
	nowFn    func() time.Time
}

// NewService creates a body metrics service.
func NewService(store storage.MeasurementStore, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Create appends a new measurement version and announces it. The notification
// is best-effort: a failed delivery is logged and the write still succeeds.
func (s *Service) Create(ctx context.Context, userID int64, req v1.MeasurementCreateRequest) (*v1.SnapshotResponse, error) {
	date, err := req.Validate(s.nowFn())
	if err != nil {
		return nil, invalidf("%s", err)
	}
	if err := s.checkDate(date); err != nil {
		return nil, err
	}

	m := record.Measurement{
		UserID:          userID,
		MeasurementDate: calendar.Day(date),
		Weight:          req.Weight,
		MuscleMass:      req.MuscleMass,
		BodyFat:         req.BodyFat,
		Height:          req.Height,
	}
	if err := s.store.Append(ctx, &m); err != nil {
		return nil, fmt.Errorf("failed to append measurement: %w", err)
	}

	observability.RecordMeasurementRegistered()

	snap := record.SnapshotOf(m)
	if err := s.notifier.MeasurementRegistered(ctx, snap); err != nil {
		slog.Warn("Measurement notification failed",
			"user_id", userID,
			"record_id", m.ID,
			"error", err)
	}

	slog.Info("Measurement registered",
		"user_id", userID,
		"record_id", m.ID,
		"measurement_date", m.MeasurementDate.Format(v1.DateFormat))

	return snapshotResponse(snap), nil
}

// Patch appends a corrected version on the same calendar day. Fields omitted
// from the patch inherit the targeted version's values. History stays intact;
// the correction simply becomes the newest version and wins resolution.
func (s *Service) Patch(ctx context.Context, userID, id int64, req v1.MeasurementPatchRequest) (*v1.SnapshotResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidf("%s", err)
	}

	base, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !base.Active {
		return nil, storage.ErrTombstoned
	}

	next := record.Measurement{
		UserID:          userID,
		MeasurementDate: base.MeasurementDate,
		Weight:          base.Weight,
		MuscleMass:      base.MuscleMass,
		BodyFat:         base.BodyFat,
		Height:          base.Height,
	}
	if req.Weight != nil {
		next.Weight = *req.Weight
	}
	if req.MuscleMass != nil {
		next.MuscleMass = *req.MuscleMass
	}
	if req.BodyFat != nil {
		next.BodyFat = *req.BodyFat
	}
	if req.Height != nil {
		next.Height = *req.Height
	}

	if err := s.store.Append(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to append corrected measurement: %w", err)
	}
	observability.RecordMeasurementRegistered()

	slog.Info("Measurement corrected",
		"user_id", userID,
		"base_record_id", id,
		"record_id", next.ID)

	return snapshotResponse(record.SnapshotOf(next)), nil
}

// Delete tombstones one measurement version. Resolution falls back to the
// next-newest surviving version of the same day, if any.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.Tombstone(ctx, userID, id); err != nil {
		return err
	}
	observability.RecordMeasurementTombstoned()
	slog.Info("Measurement deleted", "user_id", userID, "record_id", id)
	return nil
}

// Snapshot resolves the current value for exactly one calendar day. A day
// without data is a normal outcome, not an error: the response is nil and
// handlers serve it as a success with a null payload. NotFound is reserved
// for id-addressed operations.
func (s *Service) Snapshot(ctx context.Context, userID int64, date time.Time) (*v1.SnapshotResponse, error) {
	if err := s.checkDate(date); err != nil {
		return nil, err
	}

	versions, err := s.store.PointLookup(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load day versions: %w", err)
	}
	snap, ok := snapshot.Resolve(versions, userID, date)
	if !ok {
		return nil, nil
	}
	return snapshotResponse(snap), nil
}

// Latest resolves the most recent value at or before date (carry-forward).
// Like Snapshot, no data at or before the date yields a nil response, not an
// error.
func (s *Service) Latest(ctx context.Context, userID int64, date time.Time) (*v1.SnapshotResponse, error) {
	if err := s.checkDate(date); err != nil {
		return nil, err
	}

	versions, err := s.store.PriorLookup(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior versions: %w", err)
	}
	snap, ok := snapshot.ResolveAsOf(versions, userID, date)
	if !ok {
		return nil, nil
	}
	return snapshotResponse(snap), nil
}

// Series reduces the window ending on endDate into bucketed averages. The
// whole span is fetched from the store in one range query; with carry-forward
// enabled one extra prior lookup seeds the leading gap days.
func (s *Service) Series(ctx context.Context, userID int64, endDate time.Time, g calendar.Granularity, carryForward bool) (*v1.MeasurementSeriesResponse, error) {
	if err := s.checkDate(endDate); err != nil {
		return nil, err
	}

	buckets := calendar.Partition(endDate, g, window.DefaultBucketCount)
	from, to := calendar.Span(endDate, g, window.DefaultBucketCount)

	records, err := s.store.RangeQuery(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load window records: %w", err)
	}
	if carryForward {
		prior, err := s.store.PriorLookup(ctx, userID, from.AddDate(0, 0, -1))
		if err != nil {
			return nil, fmt.Errorf("failed to load carry-forward seed: %w", err)
		}
		records = append(records, prior...)
	}

	reduced := window.Aggregate(userID, records, buckets, window.Options{CarryForward: carryForward})

	resp := &v1.MeasurementSeriesResponse{
		UserID:      userID,
		EndDate:     calendar.Day(endDate).Format(v1.DateFormat),
		Granularity: string(g),
		Buckets:     make([]v1.MetricBucketResponse, 0, len(reduced)),
	}
	for _, b := range reduced {
		resp.Buckets = append(resp.Buckets, v1.MetricBucketResponse{
			StartDate:   b.Start.Format(v1.DateFormat),
			EndDate:     b.End.Format(v1.DateFormat),
			SampleCount: b.SampleCount,
			Weight:      b.Weight,
			MuscleMass:  b.MuscleMass,
			BodyFat:     b.BodyFat,
			Height:      b.Height,
		})
	}
	return resp, nil
}

// checkDate rejects dates outside [2000-01-01, today].
func (s *Service) checkDate(date time.Time) error {
	day := calendar.Day(date)
	today := calendar.Day(s.nowFn())
	if day.After(today) {
		return invalidf("date %s is in the future", day.Format(v1.DateFormat))
	}
	if day.Before(minValidDate) {
		return invalidf("date %s is before %s", day.Format(v1.DateFormat), minValidDate.Format(v1.DateFormat))
	}
	return nil
}

func snapshotResponse(snap record.Snapshot) *v1.SnapshotResponse {
	return &v1.SnapshotResponse{
		RecordID:        snap.RecordID,
		UserID:          snap.UserID,
		MeasurementDate: snap.Date.Format(v1.DateFormat),
		Weight:          snap.Weight,
		MuscleMass:      snap.MuscleMass,
		BodyFat:         snap.BodyFat,
		Height:          snap.Height,
		CreatedAt:       snap.CreatedAt,
	}
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
