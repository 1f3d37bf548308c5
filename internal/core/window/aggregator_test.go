package window

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	"github.com/vitalog-lab/vitalog/internal/core/record"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func version(id int64, date, createdAt time.Time, weight float64) record.Measurement {
	return record.Measurement{
		ID:              id,
		UserID:          7,
		MeasurementDate: date,
		CreatedAt:       createdAt,
		Weight:          decimal.NewFromFloat(weight),
		MuscleMass:      decimal.NewFromFloat(30),
		BodyFat:         decimal.NewFromFloat(18),
		Height:          decimal.NewFromFloat(178),
		Active:          true,
	}
}

func TestAggregate_AveragesOverPresentDaysOnly(t *testing.T) {
	buckets := calendar.Partition(day(2026, 3, 7), calendar.Weekly, 1)
	require.Equal(t, day(2026, 3, 1), buckets[0].Start)

	// Three of seven days have data; the divisor is 3, not 7.
	records := []record.Measurement{
		version(1, day(2026, 3, 1), day(2026, 3, 1).Add(8*time.Hour), 70),
		version(2, day(2026, 3, 3), day(2026, 3, 3).Add(8*time.Hour), 72),
		version(3, day(2026, 3, 6), day(2026, 3, 6).Add(8*time.Hour), 74),
	}

	out := Aggregate(7, records, buckets, Options{})
	require.Len(t, out, 1)
	require.Equal(t, 3, out[0].SampleCount)
	require.True(t, out[0].Weight.Valid)
	require.True(t, out[0].Weight.Decimal.Equal(decimal.NewFromInt(72)))
}

func TestAggregate_EmptyBucketIsAbsentNotZero(t *testing.T) {
	buckets := calendar.Partition(day(2026, 3, 10), calendar.Daily, 3)
	records := []record.Measurement{
		version(1, day(2026, 3, 9), day(2026, 3, 9).Add(8*time.Hour), 72),
	}

	out := Aggregate(7, records, buckets, Options{})
	require.Len(t, out, 3)

	require.Equal(t, 0, out[0].SampleCount)
	require.False(t, out[0].Weight.Valid)
	require.False(t, out[0].Height.Valid)

	require.Equal(t, 1, out[1].SampleCount)
	require.True(t, out[1].Weight.Valid)

	require.Equal(t, 0, out[2].SampleCount)
	require.False(t, out[2].Weight.Valid)
}

func TestAggregate_ResolvesLatestVersionPerDay(t *testing.T) {
	d := day(2026, 3, 10)
	buckets := []calendar.Bucket{{Start: d, End: d}}

	records := []record.Measurement{
		version(1, d, d.Add(8*time.Hour), 70),
		version(2, d, d.Add(20*time.Hour), 74),
	}

	out := Aggregate(7, records, buckets, Options{})
	require.Equal(t, 1, out[0].SampleCount)
	require.True(t, out[0].Weight.Decimal.Equal(decimal.NewFromInt(74)))
}

func TestAggregate_CarryForwardFillsGaps(t *testing.T) {
	buckets := calendar.Partition(day(2026, 3, 10), calendar.Daily, 3)

	// Entry on the 8th only; carry-forward fills the 9th and 10th.
	records := []record.Measurement{
		version(1, day(2026, 3, 8), day(2026, 3, 8).Add(8*time.Hour), 72),
	}

	out := Aggregate(7, records, buckets, Options{CarryForward: true})
	for i := 0; i < 3; i++ {
		require.Equal(t, 1, out[i].SampleCount, "bucket %d", i)
		require.True(t, out[i].Weight.Decimal.Equal(decimal.NewFromInt(72)))
	}
}

func TestAggregate_CarryForwardSeedsFromBeforeSpan(t *testing.T) {
	buckets := calendar.Partition(day(2026, 3, 10), calendar.Daily, 3)

	// The only entry predates the window; it still seeds every day.
	records := []record.Measurement{
		version(1, day(2026, 3, 1), day(2026, 3, 1).Add(8*time.Hour), 70),
	}

	out := Aggregate(7, records, buckets, Options{CarryForward: true})
	for i := 0; i < 3; i++ {
		require.Equal(t, 1, out[i].SampleCount, "bucket %d", i)
		require.True(t, out[i].Weight.Decimal.Equal(decimal.NewFromInt(70)))
	}
}

func TestAggregate_NoCarryWithoutAnyPrior(t *testing.T) {
	buckets := calendar.Partition(day(2026, 3, 10), calendar.Daily, 3)

	// Entry on the 9th: the 8th stays empty even in carry-forward mode.
	records := []record.Measurement{
		version(1, day(2026, 3, 9), day(2026, 3, 9).Add(8*time.Hour), 72),
	}

	out := Aggregate(7, records, buckets, Options{CarryForward: true})
	require.Equal(t, 0, out[0].SampleCount)
	require.False(t, out[0].Weight.Valid)
	require.Equal(t, 1, out[1].SampleCount)
	require.Equal(t, 1, out[2].SampleCount)
}

func TestAggregate_ExactDecimalAverage(t *testing.T) {
	buckets := calendar.Partition(day(2026, 3, 2), calendar.Daily, 2)
	records := []record.Measurement{
		version(1, day(2026, 3, 1), day(2026, 3, 1).Add(time.Hour), 70.1),
		version(2, day(2026, 3, 2), day(2026, 3, 2).Add(time.Hour), 70.2),
	}

	// Average each daily bucket separately, then check one-bucket math over
	// both days via a weekly partition.
	weekly := []calendar.Bucket{{Start: day(2026, 3, 1), End: day(2026, 3, 2)}}
	out := Aggregate(7, records, weekly, Options{})
	require.True(t, out[0].Weight.Decimal.Equal(decimal.RequireFromString("70.15")),
		"got %s", out[0].Weight.Decimal)

	daily := Aggregate(7, records, buckets, Options{})
	require.True(t, daily[0].Weight.Decimal.Equal(decimal.RequireFromString("70.1")))
}

func TestAggregate_NoBuckets(t *testing.T) {
	require.Nil(t, Aggregate(7, nil, nil, Options{}))
}
