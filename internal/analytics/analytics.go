// Package analytics turns a snapshot of the event log into dashboard metrics.
// Everything here is pure: the caller supplies the events, the window and "now".
package analytics

import (
	"time"

	"pulseboard/internal/events"
	"pulseboard/internal/pkg/referrers"
	"pulseboard/internal/timeframe"
)

// TopPathsLimit caps the TopPaths and TopReferrers rankings.
const TopPathsLimit = 10

// Summary is the aggregated view of one site over one window.
type Summary struct {
	Window         string               `json:"window"`
	TotalPeriod    int                  `json:"totalPeriod"`
	PreviousPeriod int                  `json:"previousPeriod"`
	Growth         float64              `json:"growth"`
	HasBaseline    bool                 `json:"hasBaseline"`
	TotalQRScans   int                  `json:"totalQRScans"`
	QRShare        float64              `json:"qrShare"`
	QRRank         []RankEntry          `json:"qrRank"`
	UniqueVisitors int                  `json:"uniqueVisitors"`
	TopPaths       []RankEntry          `json:"topPaths"`
	TopReferrers   []RankEntry          `json:"topReferrers"`
	Series         []timeframe.DateStat `json:"series"`
}

// MostUsedQRCode returns the top QR entry, if any.
func (s *Summary) MostUsedQRCode() (RankEntry, bool) {
	if len(s.QRRank) == 0 {
		return RankEntry{}, false
	}
	return s.QRRank[0], true
}

// ApplyCatalog fills display names for QR labels.
func (s *Summary) ApplyCatalog(catalog *events.QRCatalog) {
	for i := range s.QRRank {
		s.QRRank[i].Name = catalog.DisplayName(s.QRRank[i].Label)
	}
}

// Aggregate computes the window's metrics over evts. Events failing validation are
// skipped. Input order matters only for breaking ranking ties.
func Aggregate(evts []events.TrackingEvent, window timeframe.Window, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	bounds := window.Bounds(now, loc)

	summary := Summary{
		Window:       window.String(),
		QRRank:       []RankEntry{},
		TopPaths:     []RankEntry{},
		TopReferrers: []RankEntry{},
		Series:       []timeframe.DateStat{},
	}

	qr := newRanker()
	paths := newRanker()
	sources := newRanker()
	visitors := make(map[string]struct{})
	current := make([]time.Time, 0, len(evts))

	for i := range evts {
		e := &evts[i]
		if e.Validate() != nil {
			continue
		}

		if bounds.HasPrevious && bounds.Previous.Contains(e.CreatedAt) {
			summary.PreviousPeriod++
			continue
		}
		if !bounds.Current.Contains(e.CreatedAt) {
			continue
		}

		summary.TotalPeriod++
		current = append(current, e.CreatedAt)
		paths.add(e.Path)
		sources.add(referrers.Source(e.Referrer))

		if e.VisitorHash != "" {
			visitors[e.VisitorHash] = struct{}{}
		}
		if label, ok := events.QRLabel(e); ok {
			summary.TotalQRScans++
			qr.add(label)
		}
	}

	growth := Growth{}
	if bounds.HasPrevious {
		growth = CalculateGrowth(summary.TotalPeriod, summary.PreviousPeriod)
	}
	summary.Growth = growth.Percent
	summary.HasBaseline = growth.HasBaseline

	summary.QRShare = QRShare(summary.TotalQRScans, summary.TotalPeriod)
	summary.QRRank = qr.ranked(0)
	summary.TopPaths = paths.ranked(TopPathsLimit)
	summary.TopReferrers = sources.ranked(TopPathsLimit)
	summary.UniqueVisitors = len(visitors)
	summary.Series = buildSeries(current, window, bounds.Current, now, loc)

	return summary
}

// buildSeries buckets the current-period timestamps, emitting zero buckets too.
func buildSeries(times []time.Time, window timeframe.Window, current timeframe.Range, now time.Time, loc *time.Location) []timeframe.DateStat {
	bucketSize := window.BucketSize()

	from, to := current.From, current.To
	if window.Kind != timeframe.WindowKindDate {
		// Ongoing windows stop at the end of today so the buffer never adds a
		// bucket for tomorrow.
		endOfToday := timeframe.TruncateToBucketInTimezone(now, timeframe.BucketSizeDay, loc).AddDate(0, 0, 1)
		if to.IsZero() || to.After(endOfToday) {
			to = endOfToday
		}
	}
	if from.IsZero() {
		if len(times) == 0 {
			return []timeframe.DateStat{}
		}
		from = earliest(times)
	}

	starts := timeframe.BucketStarts(from, to, bucketSize, loc)
	index := make(map[int64]int, len(starts))
	series := make([]timeframe.DateStat, len(starts))
	for i, start := range starts {
		index[start.Unix()] = i
		series[i] = timeframe.DateStat{Date: timeframe.FormatBucket(start, bucketSize)}
	}

	for _, t := range times {
		key := timeframe.TruncateToBucketInTimezone(t, bucketSize, loc).Unix()
		if i, ok := index[key]; ok {
			series[i].Count++
		}
	}
	return series
}

func earliest(times []time.Time) time.Time {
	first := times[0]
	for _, t := range times[1:] {
		if t.Before(first) {
			first = t
		}
	}
	return first
}
