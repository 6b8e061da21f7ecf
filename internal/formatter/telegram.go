package formatter

import (
	"fmt"
	"strings"

	"calbot/internal/calendar"
)

// monthsRu substitutes Go's English month names in the rendered time.
// Substitution over a table instead of a locale package keeps the output
// byte-identical to what users already receive.
var monthsRu = map[string]string{
	"January": "января", "February": "февраля", "March": "марта",
	"April": "апреля", "May": "мая", "June": "июня",
	"July": "июля", "August": "августа", "September": "сентября",
	"October": "октября", "November": "ноября", "December": "декабря",
}

// EventFormatter renders calendar events as Telegram notification text
type EventFormatter struct{}

// NewEventFormatter creates an event formatter
func NewEventFormatter() *EventFormatter {
	return &EventFormatter{}
}

// FormatEvent renders the fixed notification template. Line order matters;
// optional lines are omitted when the field is absent.
func (f *EventFormatter) FormatEvent(ev *calendar.Event) string {
	lines := []string{"📅 Новое событие в календаре:", ""}

	if ev.Title != "" {
		lines = append(lines, fmt.Sprintf("Название: %s", ev.Title))
	}

	lines = append(lines, fmt.Sprintf("Когда: %s", f.formatTime(ev)))

	if ev.Location != "" {
		lines = append(lines, fmt.Sprintf("Место: %s", ev.Location))
	}
	if ev.Description != "" {
		lines = append(lines, fmt.Sprintf("Описание: %s", ev.Description))
	}

	return strings.Join(lines, "\n")
}

// FormatUpcoming renders the /next listing: each event through the same
// template, blank-line separated.
func (f *EventFormatter) FormatUpcoming(events []*calendar.Event) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		parts = append(parts, f.FormatEvent(ev))
	}
	return strings.Join(parts, "\n\n")
}

func (f *EventFormatter) formatTime(ev *calendar.Event) string {
	s := ev.StartsAt.Format("02 January, 15:04")
	if !ev.EndsAt.IsZero() {
		s += "–" + ev.EndsAt.Format("15:04")
	}
	for en, ru := range monthsRu {
		s = strings.ReplaceAll(s, en, ru)
	}
	return s
}
