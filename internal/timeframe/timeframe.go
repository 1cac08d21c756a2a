package timeframe

import (
	"time"
)

// TimeWindowBuffer is added to "now" when a window is still ongoing, so events
// stamped by a store clock running slightly ahead of ours are not cut off.
const TimeWindowBuffer = 5 * time.Minute

// maxBucketPoints caps series generation for very wide ranges.
const maxBucketPoints = 1000

type DateStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type BucketSize string

const (
	BucketSizeHour BucketSize = "hour"
	BucketSizeDay  BucketSize = "day"
)

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider reads the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// FixedTimeProvider always returns CurrentTime. Used by tests.
type FixedTimeProvider struct {
	CurrentTime time.Time
}

func (p *FixedTimeProvider) Now(loc *time.Location) time.Time {
	return p.CurrentTime.In(loc)
}

// TruncateToBucketInTimezone truncates t to the start of its bucket as seen in loc.
func TruncateToBucketInTimezone(t time.Time, bucketSize BucketSize, loc *time.Location) time.Time {
	localTime := t.In(loc)
	year, month, day := localTime.Date()

	switch bucketSize {
	case BucketSizeHour:
		return time.Date(year, month, day, localTime.Hour(), 0, 0, 0, loc)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}
}

// BucketStarts lists every bucket start in loc from the bucket containing from up
// to and including the bucket containing the last instant before to. Only the
// most recent maxBucketPoints buckets are kept.
func BucketStarts(from, to time.Time, bucketSize BucketSize, loc *time.Location) []time.Time {
	if !from.Before(to) {
		return nil
	}

	last := TruncateToBucketInTimezone(to.Add(-time.Nanosecond), bucketSize, loc)
	current := TruncateToBucketInTimezone(from, bucketSize, loc)

	points := []time.Time{}
	for !current.After(last) {
		points = append(points, current)
		current = nextBucket(current, bucketSize)
	}
	if len(points) > maxBucketPoints {
		points = points[len(points)-maxBucketPoints:]
	}
	return points
}

// nextBucket steps in calendar terms so DST days keep 23 or 25 hours.
func nextBucket(t time.Time, bucketSize BucketSize) time.Time {
	if bucketSize == BucketSizeHour {
		return t.Add(time.Hour)
	}
	return t.AddDate(0, 0, 1)
}

// FormatBucket renders a bucket start for display.
func FormatBucket(t time.Time, bucketSize BucketSize) string {
	if bucketSize == BucketSizeHour {
		return t.Format("2006-01-02T15:00:00Z07:00")
	}
	return t.Format("2006-01-02")
}
