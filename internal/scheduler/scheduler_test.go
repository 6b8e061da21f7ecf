package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"calbot/internal/calendar"
	"calbot/pkg/models"
)

type staticSource struct {
	mu       sync.Mutex
	accounts []*models.Account
	err      error
}

func (s *staticSource) GetActiveAccounts(context.Context) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts, s.err
}

func TestTickIsolatesFailingAccount(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	accounts := []*models.Account{
		testAccount(1, 101),
		testAccount(2, 102),
		testAccount(3, 103),
	}

	gw := newStubGateway()
	gw.events[accounts[0].CalDAVUsername.String] = []calendar.Event{
		{UID: "a1", Title: "for one", StartsAt: now.Add(time.Hour)},
	}
	gw.errs[accounts[1].CalDAVUsername.String] = errors.New("fetch timed out")
	gw.events[accounts[2].CalDAVUsername.String] = []calendar.Event{
		{UID: "c1", Title: "for three", StartsAt: now.Add(time.Hour)},
	}

	ledger := newMemLedger()
	sink := &recordSink{}
	task := newTestTask(gw, ledger, sink, now)
	sched := New(&staticSource{accounts: accounts}, task, time.Minute, discardLogger())

	sched.Tick(context.Background())
	sched.wg.Wait()

	msgs := sink.messages()
	if len(msgs) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(msgs))
	}
	delivered := map[int64]string{}
	for _, m := range msgs {
		delivered[m.chatID] = m.text
	}
	if !strings.Contains(delivered[101], "for one") {
		t.Fatalf("account 1 missed its delivery: %v", delivered)
	}
	if !strings.Contains(delivered[103], "for three") {
		t.Fatalf("account 3 missed its delivery: %v", delivered)
	}
	if _, ok := delivered[102]; ok {
		t.Fatal("failing account must not deliver")
	}
}

func TestTickSkipsAccountStillInFlight(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(1, 101)

	gw := newStubGateway()
	gw.block = make(chan struct{})
	gw.events[account.CalDAVUsername.String] = []calendar.Event{
		{UID: "e1", Title: "slow", StartsAt: now.Add(time.Hour)},
	}

	ledger := newMemLedger()
	sink := &recordSink{}
	task := newTestTask(gw, ledger, sink, now)
	sched := New(&staticSource{accounts: []*models.Account{account}}, task, time.Minute, discardLogger())

	ctx := context.Background()
	sched.Tick(ctx)

	// Wait for the task goroutine to reach the blocked fetch.
	deadline := time.After(2 * time.Second)
	for {
		gw.mu.Lock()
		calls := gw.calls[account.CalDAVUsername.String]
		gw.mu.Unlock()
		if calls == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first fetch never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// A second tick while the first task is in flight must not start
	// another task for the same account.
	sched.Tick(ctx)

	close(gw.block)
	sched.wg.Wait()

	gw.mu.Lock()
	calls := gw.calls[account.CalDAVUsername.String]
	gw.mu.Unlock()
	if calls != 1 {
		t.Fatalf("gateway calls = %d, want 1 (overlapping tick must skip)", calls)
	}
	if got := len(sink.messages()); got != 1 {
		t.Fatalf("deliveries = %d, want 1", got)
	}
}

func TestTickSourceErrorAbortsQuietly(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	gw := newStubGateway()
	ledger := newMemLedger()
	sink := &recordSink{}
	task := newTestTask(gw, ledger, sink, now)
	source := &staticSource{err: errors.New("store down")}
	sched := New(source, task, time.Minute, discardLogger())

	sched.Tick(context.Background())
	sched.wg.Wait()

	if got := len(sink.messages()); got != 0 {
		t.Fatalf("deliveries = %d, want 0", got)
	}
}
