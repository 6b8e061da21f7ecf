package calendar

import (
	"testing"
	"time"
)

func TestEventIDPrefersNativeUID(t *testing.T) {
	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	ev := Event{UID: "ABC-123", Title: "Standup", StartsAt: start}

	if got := ev.ID(); got != "ABC-123" {
		t.Fatalf("ID() = %q, want native UID", got)
	}
}

func TestEventIDStableUnderEdits(t *testing.T) {
	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	first := Event{UID: "ABC-123", Title: "Standup", StartsAt: start}
	second := Event{UID: "ABC-123", Title: "Standup (moved)", Description: "edited later", StartsAt: start.Add(time.Hour)}

	if first.ID() != second.ID() {
		t.Fatalf("same underlying event produced different IDs: %q vs %q", first.ID(), second.ID())
	}
}

func TestEventIDFallback(t *testing.T) {
	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	ev := Event{Title: "Standup", StartsAt: start}

	want := "Standup_2026-09-01T14:00:00Z"
	if got := ev.ID(); got != want {
		t.Fatalf("ID() = %q, want %q", got, want)
	}

	// Distinct events with identical title and start collapse on purpose.
	other := Event{Title: "Standup", Location: "Room 2", StartsAt: start}
	if other.ID() != ev.ID() {
		t.Fatalf("fallback IDs differ for identical title+start: %q vs %q", other.ID(), ev.ID())
	}
}
