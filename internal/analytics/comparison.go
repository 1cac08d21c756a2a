package analytics

import "math"

// Growth is the period-over-period change of an event count.
//
// HasBaseline is false when there is nothing meaningful to compare against: the
// previous period was empty while the current one was not, or the window has no
// previous period at all. Percent is 0 in that case and must not be displayed as
// a rate.
type Growth struct {
	Percent     float64 `json:"percent"`
	HasBaseline bool    `json:"hasBaseline"`
}

// CalculateGrowth computes (current-previous)/previous*100 rounded to one decimal.
// It never returns NaN or Inf.
func CalculateGrowth(current, previous int) Growth {
	if previous <= 0 {
		if current <= 0 {
			return Growth{Percent: 0, HasBaseline: true}
		}
		return Growth{Percent: 0, HasBaseline: false}
	}

	change := (float64(current) - float64(previous)) / float64(previous) * 100
	return Growth{Percent: roundOneDecimal(change), HasBaseline: true}
}

// QRShare is the percentage of QR scans among all events, 0 when there are none.
func QRShare(qrScans, total int) float64 {
	return percentage(qrScans, total)
}

// percentage returns part/total*100 rounded to one decimal, 0 when total is 0.
func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return roundOneDecimal(float64(part) / float64(total) * 100)
}

func roundOneDecimal(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}
