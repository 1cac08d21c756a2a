package timeframe_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/timeframe"
)

func TestParseWindow(t *testing.T) {
	testCases := []struct {
		input    string
		expected timeframe.Window
	}{
		{"", timeframe.DefaultWindow},
		{"7d", timeframe.Window{Kind: timeframe.WindowKindRelative, Days: 7}},
		{" 30D ", timeframe.Window{Kind: timeframe.WindowKindRelative, Days: 30}},
		{"all", timeframe.Window{Kind: timeframe.WindowKindAll}},
		{"2024-03-15", timeframe.Window{Kind: timeframe.WindowKindDate, Year: 2024, Month: time.March, Day: 15}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			w, err := timeframe.ParseWindow(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, w)
		})
	}

	for _, bad := range []string{"d", "0d", "-3d", "7days", "week", "2024-13-01", "2024/03/15", "99999d"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := timeframe.ParseWindow(bad)
			assert.True(t, errors.Is(err, timeframe.ErrInvalidWindow))
		})
	}
}

func TestWindowString(t *testing.T) {
	for _, s := range []string{"7d", "all", "2024-03-05"} {
		w, err := timeframe.ParseWindow(s)
		require.NoError(t, err)
		assert.Equal(t, s, w.String())
	}
}

func TestRelativeWindowBounds(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	w := timeframe.Window{Kind: timeframe.WindowKindRelative, Days: 7}

	b := w.Bounds(now, time.UTC)
	require.True(t, b.HasPrevious)
	assert.Equal(t, now.AddDate(0, 0, -7), b.Current.From)
	assert.Equal(t, now.Add(timeframe.TimeWindowBuffer), b.Current.To)
	assert.Equal(t, now.AddDate(0, 0, -14), b.Previous.From)
	assert.Equal(t, b.Current.From, b.Previous.To)

	assert.True(t, b.Current.Contains(now))
	assert.True(t, b.Current.Contains(b.Current.From))
	assert.False(t, b.Previous.Contains(b.Current.From), "ranges do not overlap")

	q := w.QueryRange(now, time.UTC)
	assert.Equal(t, b.Previous.From, q.From)
	assert.Equal(t, b.Current.To, q.To)
}

func TestDateWindowBoundsUseTimezone(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	w, err := timeframe.ParseWindow("2024-03-15")
	require.NoError(t, err)

	b := w.Bounds(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), madrid)
	assert.Equal(t, time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC), b.Current.From.UTC())
	assert.Equal(t, time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), b.Current.To.UTC())
	assert.Equal(t, time.Date(2024, 3, 13, 23, 0, 0, 0, time.UTC), b.Previous.From.UTC())

	// 23:30 UTC on the 15th is already the 16th in Madrid.
	assert.False(t, b.Current.Contains(time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)))
	assert.True(t, b.Current.Contains(time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)))
}

func TestAllWindowHasNoComparison(t *testing.T) {
	w := timeframe.Window{Kind: timeframe.WindowKindAll}
	b := w.Bounds(time.Now(), time.UTC)

	assert.False(t, b.HasPrevious)
	assert.True(t, b.Current.From.IsZero())
	assert.True(t, b.Current.To.IsZero())
	assert.True(t, b.Current.Contains(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, timeframe.Range{}, w.QueryRange(time.Now(), time.UTC))
}

func TestWindowBucketSize(t *testing.T) {
	assert.Equal(t, timeframe.BucketSizeHour, timeframe.Window{Kind: timeframe.WindowKindDate}.BucketSize())
	assert.Equal(t, timeframe.BucketSizeDay, timeframe.DefaultWindow.BucketSize())
	assert.Equal(t, timeframe.BucketSizeDay, timeframe.Window{Kind: timeframe.WindowKindAll}.BucketSize())
}
