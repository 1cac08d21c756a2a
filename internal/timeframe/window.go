package timeframe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidWindow is returned for window strings that are not Nd, all or YYYY-MM-DD.
var ErrInvalidWindow = errors.New("invalid window")

// maxRelativeDays keeps relative windows inside what time.Duration can express.
const maxRelativeDays = 3650

type WindowKind string

const (
	WindowKindRelative WindowKind = "relative"
	WindowKindAll      WindowKind = "all"
	WindowKindDate     WindowKind = "date"
)

// Window is the caller-supplied slice of the event log: the last N days, a single
// calendar day, or everything.
type Window struct {
	Kind WindowKind
	Days int
	// Year, Month and Day identify the calendar day of a date window. They are
	// interpreted in the dashboard timezone when bounds are computed.
	Year  int
	Month time.Month
	Day   int
}

// Range is a half-open interval [From, To). A zero bound is open on that side.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Bounds are the ranges a window compares. Previous is only meaningful when
// HasPrevious is set.
type Bounds struct {
	Current     Range
	Previous    Range
	HasPrevious bool
}

// DefaultWindow is used when the caller does not name one.
var DefaultWindow = Window{Kind: WindowKindRelative, Days: 7}

// ParseWindow parses "7d", "30d", "all" or "2024-03-15". An empty string yields
// DefaultWindow.
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch {
	case s == "":
		return DefaultWindow, nil
	case s == "all":
		return Window{Kind: WindowKindAll}, nil
	case strings.HasSuffix(s, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days < 1 || days > maxRelativeDays {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
		}
		return Window{Kind: WindowKindRelative, Days: days}, nil
	}

	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return Window{Kind: WindowKindDate, Year: date.Year(), Month: date.Month(), Day: date.Day()}, nil
}

func (w Window) String() string {
	switch w.Kind {
	case WindowKindAll:
		return "all"
	case WindowKindDate:
		return fmt.Sprintf("%04d-%02d-%02d", w.Year, w.Month, w.Day)
	default:
		return fmt.Sprintf("%dd", w.Days)
	}
}

// Bounds computes the current and comparison ranges relative to now.
//
// A relative window of N days covers [now-N days, now+TimeWindowBuffer) and is
// compared with the N days before it. A date window covers that calendar day in
// loc and is compared with the day before. "all" has no comparison.
func (w Window) Bounds(now time.Time, loc *time.Location) Bounds {
	if loc == nil {
		loc = time.UTC
	}

	switch w.Kind {
	case WindowKindAll:
		return Bounds{}
	case WindowKindDate:
		start := time.Date(w.Year, w.Month, w.Day, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 1)
		return Bounds{
			Current:     Range{From: start, To: end},
			Previous:    Range{From: start.AddDate(0, 0, -1), To: start},
			HasPrevious: true,
		}
	default:
		span := time.Duration(w.Days) * 24 * time.Hour
		start := now.Add(-span)
		return Bounds{
			Current:     Range{From: start, To: now.Add(TimeWindowBuffer)},
			Previous:    Range{From: start.Add(-span), To: start},
			HasPrevious: true,
		}
	}
}

// QueryRange is the single store range that covers both the current and the
// comparison range.
func (w Window) QueryRange(now time.Time, loc *time.Location) Range {
	b := w.Bounds(now, loc)
	if !b.HasPrevious {
		return b.Current
	}
	return Range{From: b.Previous.From, To: b.Current.To}
}

// BucketSize is hourly for a single day and daily otherwise.
func (w Window) BucketSize() BucketSize {
	if w.Kind == WindowKindDate {
		return BucketSizeHour
	}
	return BucketSizeDay
}
