package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"calbot/internal/calendar"
	"calbot/internal/formatter"
	"calbot/pkg/models"
)

const (
	// lookAheadWindow is the forward span queried on every sync
	lookAheadWindow = 7 * 24 * time.Hour

	// maxEventAge drops events that started too long ago: a start exactly
	// one hour in the past is already excluded
	maxEventAge = time.Hour

	storeTimeout = 5 * time.Second
)

// Ledger is the durable record of already-delivered events
type Ledger interface {
	IsEventSent(ctx context.Context, accountID int64, eventUID string) (bool, error)
	MarkEventSent(ctx context.Context, accountID int64, eventUID string) error
}

// Sink delivers a text message to a chat
type Sink interface {
	SendPlain(ctx context.Context, chatID int64, text string) error
}

// AccountSource enumerates accounts eligible for sync
type AccountSource interface {
	GetActiveAccounts(ctx context.Context) ([]*models.Account, error)
}

// Task is the per-account unit of sync work: fetch, order, filter, dedup,
// deliver, record. Every failure is confined to the account and the tick;
// the next tick simply tries again.
type Task struct {
	gateway     calendar.Gateway
	ledger      Ledger
	sink        Sink
	formatter   *formatter.EventFormatter
	sendTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewTask creates a sync task runner shared by all accounts
func NewTask(gateway calendar.Gateway, ledger Ledger, sink Sink, sendTimeout time.Duration, logger *slog.Logger) *Task {
	return &Task{
		gateway:     gateway,
		ledger:      ledger,
		sink:        sink,
		formatter:   formatter.NewEventFormatter(),
		sendTimeout: sendTimeout,
		logger:      logger.With("component", "sync_task"),
		now:         time.Now,
	}
}

// Run syncs one account for one tick
func (t *Task) Run(ctx context.Context, account *models.Account) {
	log := t.logger.With("account_id", account.ID, "chat_id", account.ChatID)

	now := t.now()
	creds := calendar.Credentials{
		Username: account.CalDAVUsername.String,
		Password: account.CalDAVPassword.String,
		URL:      account.CalDAVURL,
	}

	events, err := t.gateway.Events(ctx, creds, now, now.Add(lookAheadWindow))
	if err != nil {
		log.Error("failed to fetch events", "error", err)
		return
	}

	// The gateway sorts, but delivery order is this task's contract:
	// messages must reach the user in non-decreasing start-time order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})

	delivered := 0
	for i := range events {
		ev := &events[i]

		if now.Sub(ev.StartsAt) >= maxEventAge {
			continue
		}

		uid := ev.ID()

		sent, err := t.isEventSent(ctx, account.ID, uid)
		if err != nil {
			// Skipping on a ledger read failure risks a late delivery next
			// tick, never a duplicate.
			log.Error("failed to check delivery ledger", "event_uid", uid, "error", err)
			continue
		}
		if sent {
			continue
		}

		if err := t.deliver(ctx, account.ChatID, ev); err != nil {
			log.Error("failed to deliver event", "event_uid", uid, "error", err)
			continue
		}

		// Record right after the delivery, not batched: a crash here can
		// duplicate this one event next tick, which at-most-once accepts.
		if err := t.markEventSent(ctx, account.ID, uid); err != nil {
			log.Error("failed to record delivery", "event_uid", uid, "error", err)
		}
		delivered++
	}

	if delivered > 0 {
		log.Info("delivered new events", "count", delivered)
	}
}

func (t *Task) isEventSent(ctx context.Context, accountID int64, uid string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return t.ledger.IsEventSent(ctx, accountID, uid)
}

func (t *Task) markEventSent(ctx context.Context, accountID int64, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return t.ledger.MarkEventSent(ctx, accountID, uid)
}

func (t *Task) deliver(ctx context.Context, chatID int64, ev *calendar.Event) error {
	ctx, cancel := context.WithTimeout(ctx, t.sendTimeout)
	defer cancel()
	return t.sink.SendPlain(ctx, chatID, t.formatter.FormatEvent(ev))
}
