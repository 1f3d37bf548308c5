package calendar

import (
	"fmt"
	"time"
)

// Granularity selects how a window is partitioned into buckets.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity parses a granularity string.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily, Weekly, Monthly:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("invalid granularity %q (must be daily, weekly, or monthly)", s)
	}
}

// Day normalizes a timestamp to its calendar day (midnight UTC).
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Bucket is one contiguous calendar sub-range of a window.
// Start and End are inclusive calendar days (midnight UTC).
type Bucket struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days the bucket covers.
func (b Bucket) Days() int {
	return int(b.End.Sub(b.Start)/(24*time.Hour)) + 1
}

// Contains reports whether the calendar day of t falls inside the bucket.
func (b Bucket) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(b.Start) && !d.After(b.End)
}

// Span computes the full covering date range for a window of bucketCount
// buckets at the given granularity, ending on endDate (inclusive).
// For monthly windows the span starts on the 1st of the earliest month;
// the final month is cut off at endDate.
func Span(endDate time.Time, g Granularity, bucketCount int) (time.Time, time.Time) {
	end := Day(endDate)
	switch g {
	case Weekly:
		return end.AddDate(0, 0, -(bucketCount*7 - 1)), end
	case Monthly:
		first := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -(bucketCount - 1), 0), end
	default:
		return end.AddDate(0, 0, -(bucketCount - 1)), end
	}
}

// Partition splits the window ending on endDate into bucketCount contiguous,
// non-overlapping buckets, oldest first. The last bucket always ends on
// endDate; for monthly windows that makes the final bucket a partial month
// whenever endDate is not a month end.
func Partition(endDate time.Time, g Granularity, bucketCount int) []Bucket {
	end := Day(endDate)
	buckets := make([]Bucket, 0, bucketCount)

	switch g {
	case Weekly:
		for i := bucketCount - 1; i >= 0; i-- {
			last := end.AddDate(0, 0, -7*i)
			buckets = append(buckets, Bucket{Start: last.AddDate(0, 0, -6), End: last})
		}
	case Monthly:
		for i := bucketCount - 1; i >= 0; i-- {
			first := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
			last := first.AddDate(0, 1, -1)
			if last.After(end) {
				last = end
			}
			buckets = append(buckets, Bucket{Start: first, End: last})
		}
	default:
		for i := bucketCount - 1; i >= 0; i-- {
			d := end.AddDate(0, 0, -i)
			buckets = append(buckets, Bucket{Start: d, End: d})
		}
	}

	return buckets
}

// DaysBetween returns every calendar day in [from, to], inclusive.
func DaysBetween(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil
	}
	days := make([]time.Time, 0, int(to.Sub(from)/(24*time.Hour))+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
