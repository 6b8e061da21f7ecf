package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"calbot/internal/calendar"
	"calbot/pkg/models"
)

type stubGateway struct {
	mu     sync.Mutex
	events map[string][]calendar.Event // keyed by username
	errs   map[string]error
	block  chan struct{} // when set, Events waits until closed
	calls  map[string]int
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		events: make(map[string][]calendar.Event),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (g *stubGateway) Events(ctx context.Context, creds calendar.Credentials, _, _ time.Time) ([]calendar.Event, error) {
	g.mu.Lock()
	g.calls[creds.Username]++
	block := g.block
	err := g.errs[creds.Username]
	events := g.events[creds.Username]
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (g *stubGateway) Verify(context.Context, calendar.Credentials) error {
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	records map[string]struct{}
	readErr error
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]struct{})}
}

func ledgerKey(accountID int64, uid string) string {
	return fmt.Sprintf("%d/%s", accountID, uid)
}

func (l *memLedger) IsEventSent(_ context.Context, accountID int64, uid string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return false, l.readErr
	}
	_, ok := l.records[ledgerKey(accountID, uid)]
	return ok, nil
}

func (l *memLedger) MarkEventSent(_ context.Context, accountID int64, uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[ledgerKey(accountID, uid)] = struct{}{}
	return nil
}

func (l *memLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type sentMessage struct {
	chatID int64
	text   string
}

type recordSink struct {
	mu        sync.Mutex
	sent      []sentMessage
	failFirst bool
}

func (s *recordSink) SendPlain(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFirst {
		s.failFirst = false
		return errors.New("telegram unavailable")
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (s *recordSink) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testAccount(id, chatID int64) *models.Account {
	return &models.Account{
		ID:             id,
		ChatID:         chatID,
		CalDAVUsername: sql.NullString{String: fmt.Sprintf("user%d@example.com", id), Valid: true},
		CalDAVPassword: sql.NullString{String: "secret", Valid: true},
		CalDAVURL:      "https://caldav.example.com/",
		IsActive:       true,
	}
}

func newTestTask(gw calendar.Gateway, ledger Ledger, sink Sink, now time.Time) *Task {
	task := NewTask(gw, ledger, sink, time.Second, discardLogger())
	task.now = func() time.Time { return now }
	return task
}

func TestTaskWindowBoundary(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 100)

	gw := newStubGateway()
	gw.events[account.CalDAVUsername.String] = []calendar.Event{
		{UID: "too-old", Title: "61 min past", StartsAt: now.Add(-61 * time.Minute)},
		{UID: "boundary", Title: "exactly 1h past", StartsAt: now.Add(-60 * time.Minute)},
		{UID: "recent", Title: "59 min past", StartsAt: now.Add(-59 * time.Minute)},
	}
	ledger := newMemLedger()
	sink := &recordSink{}

	newTestTask(gw, ledger, sink, now).Run(context.Background(), account)

	msgs := sink.messages()
	if len(msgs) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].text, "59 min past") {
		t.Fatalf("wrong event delivered:\n%s", msgs[0].text)
	}
	if ledger.size() != 1 {
		t.Fatalf("ledger records = %d, want 1", ledger.size())
	}
}

func TestTaskIdempotent(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 100)

	gw := newStubGateway()
	gw.events[account.CalDAVUsername.String] = []calendar.Event{
		{UID: "e1", Title: "One", StartsAt: now.Add(2 * time.Hour)},
		{UID: "e2", Title: "Two", StartsAt: now.Add(3 * time.Hour)},
	}
	ledger := newMemLedger()
	sink := &recordSink{}
	task := newTestTask(gw, ledger, sink, now)

	task.Run(context.Background(), account)
	task.Run(context.Background(), account)

	if got := len(sink.messages()); got != 2 {
		t.Fatalf("deliveries after two runs = %d, want 2", got)
	}
	if ledger.size() != 2 {
		t.Fatalf("ledger records = %d, want 2", ledger.size())
	}
}

func TestTaskDeliveryOrder(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 100)

	// Deliberately unsorted: delivery order is the task's responsibility.
	gw := newStubGateway()
	gw.events[account.CalDAVUsername.String] = []calendar.Event{
		{UID: "c", Title: "third", StartsAt: now.Add(72 * time.Hour)},
		{UID: "a", Title: "first", StartsAt: now.Add(1 * time.Hour)},
		{UID: "b", Title: "second", StartsAt: now.Add(24 * time.Hour)},
	}
	ledger := newMemLedger()
	sink := &recordSink{}

	newTestTask(gw, ledger, sink, now).Run(context.Background(), account)

	msgs := sink.messages()
	if len(msgs) != 3 {
		t.Fatalf("deliveries = %d, want 3", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if !strings.Contains(msgs[i].text, want) {
			t.Fatalf("message %d = %q, want %q event", i, msgs[i].text, want)
		}
	}
}

func TestTaskPastAndFutureEvent(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 100)

	gw := newStubGateway()
	gw.events[account.CalDAVUsername.String] = []calendar.Event{
		{UID: "past", Title: "two hours ago", StartsAt: now.Add(-2 * time.Hour)},
		{UID: "future", Title: "in two hours", StartsAt: now.Add(2 * time.Hour)},
	}
	ledger := newMemLedger()
	sink := &recordSink{}

	newTestTask(gw, ledger, sink, now).Run(context.Background(), account)

	if got := len(sink.messages()); got != 1 {
		t.Fatalf("deliveries = %d, want 1", got)
	}
	if ledger.size() != 1 {
		t.Fatalf("ledger records = %d, want 1", ledger.size())
	}
	if sent, _ := ledger.IsEventSent(context.Background(), account.ID, "future"); !sent {
		t.Fatal("future event not recorded in ledger")
	}
}

func TestTaskDeliveryFailureDoesNotBlockNext(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 100)

	gw := newStubGateway()
	gw.events[account.CalDAVUsername.String] = []calendar.Event{
		{UID: "e1", Title: "first", StartsAt: now.Add(1 * time.Hour)},
		{UID: "e2", Title: "second", StartsAt: now.Add(2 * time.Hour)},
	}
	ledger := newMemLedger()
	sink := &recordSink{failFirst: true}
	task := newTestTask(gw, ledger, sink, now)

	task.Run(context.Background(), account)

	msgs := sink.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].text, "second") {
		t.Fatalf("expected only the second event delivered, got %v", msgs)
	}

	// The failed event was not recorded; the next tick retries it.
	if sent, _ := ledger.IsEventSent(context.Background(), account.ID, "e1"); sent {
		t.Fatal("failed delivery must not be recorded")
	}

	task.Run(context.Background(), account)
	msgs = sink.messages()
	if len(msgs) != 2 || !strings.Contains(msgs[1].text, "first") {
		t.Fatalf("expected the first event retried on the next run, got %v", msgs)
	}
}

func TestTaskLedgerReadErrorSkipsEvent(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 100)

	gw := newStubGateway()
	gw.events[account.CalDAVUsername.String] = []calendar.Event{
		{UID: "e1", Title: "event", StartsAt: now.Add(time.Hour)},
	}
	ledger := newMemLedger()
	ledger.readErr = errors.New("store unreachable")
	sink := &recordSink{}

	newTestTask(gw, ledger, sink, now).Run(context.Background(), account)

	if got := len(sink.messages()); got != 0 {
		t.Fatalf("deliveries = %d, want 0 on ledger read failure", got)
	}
}

func TestTaskGatewayErrorConfined(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 100)

	gw := newStubGateway()
	gw.errs[account.CalDAVUsername.String] = errors.New("connection refused")
	ledger := newMemLedger()
	sink := &recordSink{}

	newTestTask(gw, ledger, sink, now).Run(context.Background(), account)

	if got := len(sink.messages()); got != 0 {
		t.Fatalf("deliveries = %d, want 0", got)
	}
	if ledger.size() != 0 {
		t.Fatalf("ledger records = %d, want 0", ledger.size())
	}
}
