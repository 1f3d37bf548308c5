package window

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
	"github.com/vitalog-lab/vitalog/internal/core/snapshot"
)

// DefaultBucketCount is the window size used by the weekly and monthly series.
const DefaultBucketCount = 7

// Options controls gap handling during aggregation.
type Options struct {
	// CarryForward substitutes the most recent prior resolved value for days
	// without a direct entry. Off by default: a day with no data contributes
	// nothing to its bucket.
	CarryForward bool
}

// MetricBucket is one reduced bucket of a measurement window. A metric with
// no contributing days is absent (Valid=false), never zero.
type MetricBucket struct {
	Start       time.Time
	End         time.Time
	SampleCount int

	Weight     decimal.NullDecimal
	MuscleMass decimal.NullDecimal
	BodyFat    decimal.NullDecimal
	Height     decimal.NullDecimal
}

// Aggregate reduces a user's measurement versions into per-bucket averages.
// The caller supplies all record versions covering the buckets' span in a
// single batch; resolution to one value per day happens here, so the store
// is hit exactly once per window regardless of bucket count.
//
// Each bucket's average divides by the number of days that resolved a value,
// not by the bucket length. Buckets come back in the order given (oldest
// first by convention of calendar.Partition).
func Aggregate(userID int64, records []record.Measurement, buckets []calendar.Bucket, opts Options) []MetricBucket {
	if len(buckets) == 0 {
		return nil
	}

	daily := dailySnapshots(userID, records, buckets[0].Start, buckets[len(buckets)-1].End, opts)

	out := make([]MetricBucket, 0, len(buckets))
	for _, b := range buckets {
		mb := MetricBucket{Start: b.Start, End: b.End}

		var weight, muscle, fat, height decimal.Decimal
		for d := b.Start; !d.After(b.End); d = d.AddDate(0, 0, 1) {
			snap, ok := daily[d]
			if !ok {
				continue
			}
			weight = weight.Add(snap.Weight)
			muscle = muscle.Add(snap.MuscleMass)
			fat = fat.Add(snap.BodyFat)
			height = height.Add(snap.Height)
			mb.SampleCount++
		}

		if mb.SampleCount > 0 {
			n := decimal.NewFromInt(int64(mb.SampleCount))
			mb.Weight = decimal.NullDecimal{Decimal: weight.Div(n), Valid: true}
			mb.MuscleMass = decimal.NullDecimal{Decimal: muscle.Div(n), Valid: true}
			mb.BodyFat = decimal.NullDecimal{Decimal: fat.Div(n), Valid: true}
			mb.Height = decimal.NullDecimal{Decimal: height.Div(n), Valid: true}
		}

		out = append(out, mb)
	}
	return out
}

// dailySnapshots resolves at most one snapshot per calendar day in [from, to].
// In carry-forward mode a day without a direct entry inherits the most recent
// prior resolved value from the provided record set.
func dailySnapshots(userID int64, records []record.Measurement, from, to time.Time, opts Options) map[time.Time]record.Snapshot {
	daily := make(map[time.Time]record.Snapshot)

	var prev record.Snapshot
	havePrev := false
	if opts.CarryForward {
		// Seed from any records dated before the span so the first gap days
		// can still be filled.
		if snap, ok := snapshot.ResolveAsOf(records, userID, from.AddDate(0, 0, -1)); ok {
			prev, havePrev = snap, true
		}
	}

	for _, d := range calendar.DaysBetween(from, to) {
		snap, ok := snapshot.Resolve(records, userID, d)
		switch {
		case ok:
			daily[d] = snap
			prev, havePrev = snap, true
		case opts.CarryForward && havePrev:
			daily[d] = prev
		}
	}
	return daily
}
