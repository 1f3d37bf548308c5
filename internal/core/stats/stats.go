package stats

import (
	"time"

	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
)

// Totals is one reduced bucket of an exercise window. Exercise volume
// accumulates, so duration and calories are sums, not averages.
type Totals struct {
	Start time.Time
	End   time.Time

	// Sessions counts active exercise records in the bucket.
	Sessions        int
	DurationMinutes int64
	Calories        int64

	// CaloriesByCategory maps category ID to summed calories. The entries
	// always add up to Calories; sessions whose type is unknown to the
	// reference catalog land under category 0 to preserve that closure.
	CaloriesByCategory map[int64]int64
}

// Reduce buckets a user's exercise sessions and sums each bucket.
// categoryByType is the reference lookup (type ID -> category ID), built once
// per call from a bulk fetch — Reduce never consults the catalog per record.
// Tombstoned sessions are skipped. Buckets come back in the order given.
func Reduce(sessions []record.Exercise, buckets []calendar.Bucket, categoryByType map[int64]int64) []Totals {
	out := make([]Totals, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Totals{
			Start:              b.Start,
			End:                b.End,
			CaloriesByCategory: make(map[int64]int64),
		})
	}

	for _, s := range sessions {
		if !s.Active {
			continue
		}
		day := calendar.Day(s.OccurredAt)
		for i := range out {
			if day.Before(out[i].Start) || day.After(out[i].End) {
				continue
			}
			out[i].Sessions++
			out[i].DurationMinutes += int64(s.DurationMinutes)
			out[i].Calories += int64(s.Calories)
			out[i].CaloriesByCategory[categoryByType[s.TypeID]] += int64(s.Calories)
			break
		}
	}

	return out
}
