package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/timeframe"
)

func TestTruncateToBucketInTimezone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:30 UTC on the 10th is 21:30 on the 9th in New York (EST).
	ts := time.Date(2024, 1, 10, 2, 30, 0, 0, time.UTC)

	day := timeframe.TruncateToBucketInTimezone(ts, timeframe.BucketSizeDay, newYork)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, newYork), day)

	hour := timeframe.TruncateToBucketInTimezone(ts, timeframe.BucketSizeHour, newYork)
	assert.Equal(t, time.Date(2024, 1, 9, 21, 0, 0, 0, newYork), hour)
}

func TestBucketStarts(t *testing.T) {
	t.Run("hourly buckets for one day", func(t *testing.T) {
		from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		points := timeframe.BucketStarts(from, from.AddDate(0, 0, 1), timeframe.BucketSizeHour, time.UTC)
		require.Len(t, points, 24)
		assert.Equal(t, from, points[0])
		assert.Equal(t, from.Add(23*time.Hour), points[23])
	})

	t.Run("daily buckets include partial edge days", func(t *testing.T) {
		from := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
		to := time.Date(2024, 3, 15, 12, 5, 0, 0, time.UTC)
		points := timeframe.BucketStarts(from, to, timeframe.BucketSizeDay, time.UTC)
		require.Len(t, points, 8)
		assert.Equal(t, "2024-03-08", timeframe.FormatBucket(points[0], timeframe.BucketSizeDay))
		assert.Equal(t, "2024-03-15", timeframe.FormatBucket(points[7], timeframe.BucketSizeDay))
	})

	t.Run("daylight saving day has 23 hourly buckets", func(t *testing.T) {
		madrid, err := time.LoadLocation("Europe/Madrid")
		require.NoError(t, err)
		from := time.Date(2024, 3, 31, 0, 0, 0, 0, madrid)
		points := timeframe.BucketStarts(from, from.AddDate(0, 0, 1), timeframe.BucketSizeHour, madrid)
		assert.Len(t, points, 23)
	})

	t.Run("empty range", func(t *testing.T) {
		now := time.Now()
		assert.Empty(t, timeframe.BucketStarts(now, now, timeframe.BucketSizeDay, time.UTC))
	})
}

func TestFixedTimeProvider(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	provider := &timeframe.FixedTimeProvider{CurrentTime: fixed}

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	assert.True(t, provider.Now(tokyo).Equal(fixed))
	assert.Equal(t, tokyo, provider.Now(tokyo).Location())
}

func TestBucketStartsKeepsMostRecentPoints(t *testing.T) {
	from := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	points := timeframe.BucketStarts(from, to, timeframe.BucketSizeDay, time.UTC)
	require.Len(t, points, 1000)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), points[len(points)-1])
}
