package calendar

import (
	"fmt"
	"time"
)

// Event is a calendar event in the queried window. Events are transient:
// only the derived identifier is ever persisted (in the delivery ledger).
type Event struct {
	UID         string // Native iCal UID, may be empty
	Title       string
	Location    string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time // Zero when the event has no end
}

// ID returns the stable delivery-dedup identifier: the native UID when the
// source provides one, otherwise title plus start time. The fallback means
// two distinct events with identical title and start collapse to a single
// delivery; recurring-event variants rely on this, so it stays.
func (e *Event) ID() string {
	if e.UID != "" {
		return e.UID
	}
	return fmt.Sprintf("%s_%s", e.Title, e.StartsAt.Format(time.RFC3339))
}

// Credentials are what the gateway needs to reach one account's calendar
type Credentials struct {
	Username string
	Password string
	URL      string // CalDAV endpoint
}
