package snapshot

import (
	"time"

	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
)

// Resolve picks the authoritative measurement for one (user, calendar day)
// from a set of record versions: among active records dated exactly that day,
// the one with the highest CreatedAt wins; identical version timestamps break
// by highest ID. This tie-break is a deliberate policy, not an artifact of
// store ordering. Returns ok=false when the day has no active record.
//
// Resolve is a pure function of its inputs: it never mutates the records and
// holds no state across calls.
func Resolve(records []record.Measurement, userID int64, date time.Time) (record.Snapshot, bool) {
	day := calendar.Day(date)

	var best record.Measurement
	found := false
	for _, m := range records {
		if !m.Active || m.UserID != userID || !calendar.Day(m.MeasurementDate).Equal(day) {
			continue
		}
		if !found || newer(m, best) {
			best = m
			found = true
		}
	}
	if !found {
		return record.Snapshot{}, false
	}
	return record.SnapshotOf(best), true
}

// ResolveAsOf is the carry-forward variant: it finds the most recent calendar
// day at or before date that has at least one active record, and resolves that
// day with the same rule as Resolve. The effective ordering key is
// (date desc, createdAt desc, id desc).
func ResolveAsOf(records []record.Measurement, userID int64, date time.Time) (record.Snapshot, bool) {
	day := calendar.Day(date)

	var best record.Measurement
	found := false
	for _, m := range records {
		if !m.Active || m.UserID != userID || calendar.Day(m.MeasurementDate).After(day) {
			continue
		}
		if !found || precedes(best, m) {
			best = m
			found = true
		}
	}
	if !found {
		return record.Snapshot{}, false
	}
	return record.SnapshotOf(best), true
}

// newer reports whether a supersedes b for the same calendar day.
func newer(a, b record.Measurement) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// precedes reports whether a sorts before b under (date, createdAt, id) asc,
// i.e. b is the better carry-forward candidate.
func precedes(a, b record.Measurement) bool {
	da, db := calendar.Day(a.MeasurementDate), calendar.Day(b.MeasurementDate)
	if !da.Equal(db) {
		return da.Before(db)
	}
	return newer(b, a)
}
