package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hray3182/lifeline-calendar/internal/logger"
	"github.com/hray3182/lifeline-calendar/internal/reminder"
)

// Ticker is one dispatch pass; *reminder.Dispatcher implements it.
type Ticker interface {
	Tick(ctx context.Context) (reminder.TickStats, bool)
}

type Scheduler struct {
	ticker   Ticker
	lock     TickLock
	log      *logger.Logger
	interval time.Duration
	notifyCh chan struct{}
}

func New(ticker Ticker, lock TickLock, log *logger.Logger, interval time.Duration) *Scheduler {
	if lock == nil {
		lock = LocalLock{}
	}
	if interval <= 0 {
		interval = reminder.DefaultPollInterval
	}
	return &Scheduler{
		ticker:   ticker,
		lock:     lock,
		log:      log,
		interval: interval,
		notifyCh: make(chan struct{}, 1),
	}
}

// Notify triggers an immediate tick. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs a tick immediately and then every interval until ctx is
// cancelled. It returns after the in-flight tick has finished.
func (s *Scheduler) Start(ctx context.Context) {
	adapter := s.log.CronLogger()
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.RunOnce(ctx)
	}))

	s.log.Info("SCHEDULER", fmt.Sprintf("Scheduler started, polling every %s", s.interval))
	c.Start()
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
			s.log.Info("SCHEDULER", "Scheduler stopped")
			return
		case <-s.notifyCh:
			s.log.Debug("SCHEDULER", "Tick triggered by notification")
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single tick if the tick lock can be taken.
func (s *Scheduler) RunOnce(ctx context.Context) (reminder.TickStats, bool) {
	locked, err := s.lock.TryLock(ctx)
	if err != nil {
		s.log.Error("SCHEDULER", fmt.Sprintf("Failed to acquire tick lock: %v", err))
		return reminder.TickStats{}, false
	}
	if !locked {
		s.log.Debug("SCHEDULER", "Tick lock held elsewhere, skipping")
		return reminder.TickStats{}, false
	}
	defer func() {
		if err := s.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("SCHEDULER", fmt.Sprintf("Failed to release tick lock: %v", err))
		}
	}()

	return s.ticker.Tick(ctx)
}
