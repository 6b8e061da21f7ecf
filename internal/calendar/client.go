package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

// Client fetches events over CalDAV. One Client serves all accounts; the
// per-account state (credentials, endpoint) travels in each call.
type Client struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a CalDAV client. Every remote call is bounded by the
// given timeout on top of whatever deadline the caller's context carries.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		timeout: timeout,
		logger:  logger.With("component", "caldav_client"),
	}
}

// Events implements Gateway
func (c *Client) Events(ctx context.Context, creds Credentials, from, to time.Time) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, calPath, err := c.discover(ctx, creds)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{
				Name:     "VEVENT",
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: from,
				End:   to,
			}},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("calendar query failed: %w", c.describeHTTPError(ctx, creds, err))
	}

	var events []Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, raw := range obj.Data.Events() {
			ev, err := parseEvent(raw)
			if err != nil {
				c.logger.Warn("skipping unparsable event", "path", obj.Path, "error", err)
				continue
			}
			events = append(events, ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})

	c.logger.Info("fetched events", "username", creds.Username, "count", len(events))
	return events, nil
}

// Verify implements Gateway. Discovery alone proves the credentials: it
// requires an authenticated principal lookup and at least one calendar.
func (c *Client) Verify(ctx context.Context, creds Credentials) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, _, err := c.discover(ctx, creds)
	return err
}

// discover walks principal -> calendar home set -> calendars and returns a
// query client with the path of the first calendar, mirroring how a user's
// "default" calendar is picked.
func (c *Client) discover(ctx context.Context, creds Credentials) (*caldav.Client, string, error) {
	httpClient := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: c.timeout}, creds.Username, creds.Password)

	client, err := caldav.NewClient(httpClient, creds.URL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid caldav endpoint %q: %w", creds.URL, err)
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("principal lookup failed: %w", c.describeHTTPError(ctx, creds, err))
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, "", fmt.Errorf("calendar home set lookup failed: %w", err)
	}

	calendars, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, "", fmt.Errorf("calendar listing failed: %w", err)
	}
	if len(calendars) == 0 {
		return nil, "", fmt.Errorf("no calendars found in account %s", creds.Username)
	}

	return client, calendars[0].Path, nil
}

func parseEvent(raw ical.Event) (Event, error) {
	start, err := raw.DateTimeStart(time.Local)
	if err != nil {
		return Event{}, fmt.Errorf("failed to parse event start: %w", err)
	}
	if start.IsZero() {
		return Event{}, fmt.Errorf("event has no start time")
	}

	ev := Event{StartsAt: start}

	// End time is optional; a parse failure degrades to an open-ended event.
	if end, err := raw.DateTimeEnd(time.Local); err == nil && !end.IsZero() && end.After(start) {
		ev.EndsAt = end
	}

	ev.UID, _ = raw.Props.Text(ical.PropUID)
	ev.Title, _ = raw.Props.Text(ical.PropSummary)
	ev.Location, _ = raw.Props.Text(ical.PropLocation)
	ev.Description, _ = raw.Props.Text(ical.PropDescription)

	return ev, nil
}
