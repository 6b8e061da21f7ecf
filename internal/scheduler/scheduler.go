package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"calbot/pkg/models"
)

// Scheduler wakes on a fixed global interval and dispatches one concurrent
// sync task per eligible account. Per-account in-flight tracking guarantees
// at most one running task per account even when a slow task outlives the
// tick that started it.
type Scheduler struct {
	source   AccountSource
	task     *Task
	interval time.Duration
	cron     *cron.Cron
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler
func New(source AccountSource, task *Task, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		source:   source,
		task:     task,
		interval: interval,
		cron:     cron.New(),
		logger:   logger.With("component", "scheduler"),
		inflight: make(map[int64]struct{}),
	}
}

// Start begins the periodic ticks. The first tick fires one interval from
// now, matching the source behavior.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop halts ticking and waits for in-flight account tasks to drain
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Tick runs one scheduling round: enumerate eligible accounts and dispatch
// a task per account. Account failures never surface here; a failed store
// read skips the whole tick and the next one retries.
func (s *Scheduler) Tick(ctx context.Context) {
	s.logger.Info("sync tick started")

	listCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	accounts, err := s.source.GetActiveAccounts(listCtx)
	cancel()
	if err != nil {
		s.logger.Error("failed to list active accounts", "error", err)
		return
	}

	s.logger.Info("sync tick accounts", "count", len(accounts))

	for _, account := range accounts {
		if !s.begin(account.ID) {
			s.logger.Warn("previous sync still in flight, skipping account", "account_id", account.ID)
			continue
		}
		s.wg.Add(1)
		go func(acc *models.Account) {
			defer s.wg.Done()
			defer s.end(acc.ID)
			s.task.Run(ctx, acc)
		}(account)
	}

	s.logger.Info("sync tick completed")
}

func (s *Scheduler) begin(accountID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inflight[accountID]; running {
		return false
	}
	s.inflight[accountID] = struct{}{}
	return true
}

func (s *Scheduler) end(accountID int64) {
	s.mu.Lock()
	delete(s.inflight, accountID)
	s.mu.Unlock()
}
