package events

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the closed set of event kinds stored in the log.
type EventType string

const (
	EventTypePageView EventType = "page_view"
	EventTypeClick    EventType = "click"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	return t == EventTypePageView || t == EventTypeClick
}

// TrackingEvent is one immutable entry of the append-only event log.
type TrackingEvent struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SiteID      string    `gorm:"size:64;not null;index:idx_site_created" json:"site_id"`
	Path        string    `gorm:"not null" json:"path"`
	VisitorHash string    `gorm:"size:128;index" json:"visitor_hash"`
	EventType   EventType `gorm:"size:16;not null;default:page_view" json:"event_type"`
	Referrer    string    `json:"referrer,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index:idx_site_created" json:"created_at"`
}

// TableName pins the table name independently of the struct name.
func (TrackingEvent) TableName() string {
	return "tracking_events"
}

// Validate checks the invariants every stored or aggregated event must hold.
func (e *TrackingEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.SiteID) == "":
		return &ValidationError{Field: "site_id", Reason: "is required"}
	case e.Path == "":
		return &ValidationError{Field: "path", Reason: "is required"}
	case strings.ContainsRune(e.Path, '?'):
		return &ValidationError{Field: "path", Reason: "must not contain a query string"}
	case !e.EventType.Valid():
		return &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown type %q", e.EventType)}
	case e.CreatedAt.IsZero():
		return &ValidationError{Field: "created_at", Reason: "is required"}
	}
	return nil
}

// IsDirect reports whether the event carries no referrer.
func (e *TrackingEvent) IsDirect() bool {
	return strings.TrimSpace(e.Referrer) == ""
}
