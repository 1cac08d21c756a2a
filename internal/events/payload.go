package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError is a client-caused rejection of an inbound payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Payload is the raw beacon body. Pointer fields tell an absent key from an empty one.
type Payload struct {
	SiteID       json.RawMessage `json:"site_id"`
	Path         *string         `json:"path"`
	VisitorToken *string         `json:"visitor_token"`
	Referrer     *string         `json:"referrer"`
}

// ParsePayload decodes a beacon body.
func ParsePayload(body []byte) (*Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ValidationError{Field: "body", Reason: "is empty"}
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &ValidationError{Field: "body", Reason: "is not a JSON object"}
	}
	return &p, nil
}

// ToEvent validates the payload and shapes the event to insert. CreatedAt is left
// zero; the store assigns it.
func (p *Payload) ToEvent(eventType EventType) (*TrackingEvent, error) {
	siteID, err := decodeSiteID(p.SiteID)
	if err != nil {
		return nil, err
	}
	if p.Path == nil {
		return nil, &ValidationError{Field: "path", Reason: "is required"}
	}
	if !eventType.Valid() {
		return nil, &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown type %q", eventType)}
	}

	// Both the query string and the fragment are stripped; only ?qr= survives,
	// moved into the referrer.
	path, qrLabel, hasQR := splitPath(*p.Path)

	event := &TrackingEvent{
		SiteID:    siteID,
		Path:      path,
		EventType: eventType,
	}
	if p.VisitorToken != nil {
		event.VisitorHash = *p.VisitorToken
	}
	if p.Referrer != nil {
		event.Referrer = strings.TrimSpace(*p.Referrer)
	}
	if hasQR {
		event.Referrer = QRReferrerPrefix + qrLabel
	}

	return event, nil
}

// decodeSiteID accepts a JSON string or number.
func decodeSiteID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", &ValidationError{Field: "site_id", Reason: "is required"}
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if s = strings.TrimSpace(s); s == "" {
			return "", &ValidationError{Field: "site_id", Reason: "is required"}
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n.String(), nil
	}

	return "", &ValidationError{Field: "site_id", Reason: "must be a string or number"}
}

// splitPath drops everything from the first '?' (or '#') and returns the QR label
// carried in the discarded query string, if any.
func splitPath(raw string) (path, qrLabel string, hasQR bool) {
	path = raw
	query := ""
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		path = raw[:i]
		if raw[i] == '?' {
			query = raw[i+1:]
			if j := strings.IndexByte(query, '#'); j >= 0 {
				query = query[:j]
			}
		}
	}

	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}

	if query != "" {
		if values, err := url.ParseQuery(query); err == nil {
			if _, ok := values[QRQueryParam]; ok {
				return path, values.Get(QRQueryParam), true
			}
		}
	}

	return path, "", false
}
