package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input   string
		want    Granularity
		wantErr bool
	}{
		{"daily", Daily, false},
		{"weekly", Weekly, false},
		{"monthly", Monthly, false},
		{"", "", true},
		{"yearly", "", true},
		{"Daily", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseGranularity(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	// 2026-03-10 07:30 KST is 2026-03-09 22:30 UTC.
	in := time.Date(2026, 3, 10, 7, 30, 0, 0, loc)
	require.Equal(t, day(2026, 3, 9), Day(in))

	require.Equal(t, day(2026, 3, 10), Day(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)))
}

func TestBucket(t *testing.T) {
	b := Bucket{Start: day(2026, 3, 1), End: day(2026, 3, 7)}
	require.Equal(t, 7, b.Days())
	require.True(t, b.Contains(day(2026, 3, 1)))
	require.True(t, b.Contains(time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)))
	require.False(t, b.Contains(day(2026, 3, 8)))
	require.False(t, b.Contains(day(2026, 2, 28)))
}

func TestPartition_Daily(t *testing.T) {
	buckets := Partition(day(2026, 3, 10), Daily, 7)
	require.Len(t, buckets, 7)
	require.Equal(t, day(2026, 3, 4), buckets[0].Start)
	require.Equal(t, day(2026, 3, 4), buckets[0].End)
	require.Equal(t, day(2026, 3, 10), buckets[6].Start)
	require.Equal(t, day(2026, 3, 10), buckets[6].End)
}

func TestPartition_Weekly(t *testing.T) {
	buckets := Partition(day(2026, 3, 10), Weekly, 7)
	require.Len(t, buckets, 7)

	// Oldest bucket starts 7*7-1 = 48 days before the end date.
	require.Equal(t, day(2026, 1, 21), buckets[0].Start)
	require.Equal(t, day(2026, 1, 27), buckets[0].End)
	require.Equal(t, day(2026, 3, 4), buckets[6].Start)
	require.Equal(t, day(2026, 3, 10), buckets[6].End)

	// Contiguous and non-overlapping.
	for i := 1; i < len(buckets); i++ {
		require.Equal(t, buckets[i-1].End.AddDate(0, 0, 1), buckets[i].Start)
		require.Equal(t, 7, buckets[i].Days())
	}
}

func TestPartition_MonthlyVariedLengths(t *testing.T) {
	// Ending mid-March 2026 covers Sep 2025 through Mar 2026: the window
	// crosses 30-day, 31-day and 28-day (Feb 2026, non-leap) months.
	buckets := Partition(day(2026, 3, 15), Monthly, 7)
	require.Len(t, buckets, 7)

	require.Equal(t, day(2025, 9, 1), buckets[0].Start)
	require.Equal(t, day(2025, 9, 30), buckets[0].End)
	require.Equal(t, 30, buckets[0].Days())

	require.Equal(t, day(2025, 10, 1), buckets[1].Start)
	require.Equal(t, 31, buckets[1].Days())

	require.Equal(t, day(2026, 2, 1), buckets[5].Start)
	require.Equal(t, day(2026, 2, 28), buckets[5].End)
	require.Equal(t, 28, buckets[5].Days())

	// Final month cut off at the end date.
	require.Equal(t, day(2026, 3, 1), buckets[6].Start)
	require.Equal(t, day(2026, 3, 15), buckets[6].End)
	require.Equal(t, 15, buckets[6].Days())
}

func TestPartition_MonthlyLeapFebruary(t *testing.T) {
	buckets := Partition(day(2028, 2, 29), Monthly, 2)
	require.Len(t, buckets, 2)
	require.Equal(t, day(2028, 1, 1), buckets[0].Start)
	require.Equal(t, day(2028, 1, 31), buckets[0].End)
	require.Equal(t, day(2028, 2, 1), buckets[1].Start)
	require.Equal(t, day(2028, 2, 29), buckets[1].End)
	require.Equal(t, 29, buckets[1].Days())
}

func TestPartition_MonthlyYearRollover(t *testing.T) {
	buckets := Partition(day(2026, 2, 10), Monthly, 7)
	require.Equal(t, day(2025, 8, 1), buckets[0].Start)
	require.Equal(t, day(2025, 12, 1), buckets[4].Start)
	require.Equal(t, day(2025, 12, 31), buckets[4].End)
	require.Equal(t, day(2026, 1, 1), buckets[5].Start)
}

func TestSpan_MatchesPartitionEdges(t *testing.T) {
	end := day(2026, 3, 10)
	for _, g := range []Granularity{Daily, Weekly, Monthly} {
		buckets := Partition(end, g, 7)
		from, to := Span(end, g, 7)
		require.Equal(t, buckets[0].Start, from, "granularity %s", g)
		require.Equal(t, buckets[len(buckets)-1].End, to, "granularity %s", g)
	}
}

func TestDaysBetween(t *testing.T) {
	days := DaysBetween(day(2026, 2, 27), day(2026, 3, 2))
	require.Len(t, days, 4)
	require.Equal(t, day(2026, 2, 27), days[0])
	require.Equal(t, day(2026, 2, 28), days[1])
	require.Equal(t, day(2026, 3, 1), days[2])

	require.Nil(t, DaysBetween(day(2026, 3, 2), day(2026, 3, 1)))
	require.Len(t, DaysBetween(day(2026, 3, 1), day(2026, 3, 1)), 1)
}
