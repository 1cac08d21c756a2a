package summary

import (
	"sort"
	"time"

	"pulseboard/internal/events"
)

// MaxEvents is how many of the most recent events are forwarded to the model.
const MaxEvents = 100

// SimplifiedEvent is the compact record sent to the language model.
type SimplifiedEvent struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

// Simplify keeps the MaxEvents most recent valid events, oldest first, reduced to
// date, time, type, path and referrer. Dates and times are rendered in loc.
func Simplify(evts []events.TrackingEvent, loc *time.Location) []SimplifiedEvent {
	if loc == nil {
		loc = time.UTC
	}

	valid := make([]events.TrackingEvent, 0, len(evts))
	for i := range evts {
		if evts[i].Validate() == nil {
			valid = append(valid, evts[i])
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].CreatedAt.Before(valid[j].CreatedAt)
	})
	if len(valid) > MaxEvents {
		valid = valid[len(valid)-MaxEvents:]
	}

	out := make([]SimplifiedEvent, len(valid))
	for i, e := range valid {
		local := e.CreatedAt.In(loc)
		referrer := e.Referrer
		if e.IsDirect() {
			referrer = events.DirectReferrer
		}
		out[i] = SimplifiedEvent{
			Date:     local.Format("2006-01-02"),
			Time:     local.Format("15:04:05"),
			Type:     string(e.EventType),
			Path:     e.Path,
			Referrer: referrer,
		}
	}
	return out
}
