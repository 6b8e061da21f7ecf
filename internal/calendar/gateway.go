package calendar

import (
	"context"
	"time"
)

// Gateway is the calendar backend capability. The sync task and the
// enrollment machine depend on this interface only, so alternate backends
// can substitute the CalDAV client.
type Gateway interface {
	// Events returns the events starting inside [from, to), sorted by
	// start time ascending.
	Events(ctx context.Context, creds Credentials, from, to time.Time) ([]Event, error)

	// Verify performs a live round-trip against the endpoint to prove the
	// credentials are functional before they are persisted.
	Verify(ctx context.Context, creds Credentials) error
}
