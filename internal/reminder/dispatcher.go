package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/logger"
	"github.com/hray3182/lifeline-calendar/internal/models"
)

const (
	DefaultPollInterval  = time.Minute
	DefaultNotifyTimeout = 10 * time.Second
)

// TickStats counts what happened to each pending reminder in one tick.
type TickStats struct {
	Pending   int
	Sent      int
	Squelched int
	NotDue    int
	Skipped   int
	Failed    int
}

type outcome int

const (
	outcomeNotDue outcome = iota
	outcomeSent
	outcomeSquelched
	outcomeSkipped
	outcomeFailed
)

func (s *TickStats) record(o outcome) {
	switch o {
	case outcomeSent:
		s.Sent++
	case outcomeSquelched:
		s.Squelched++
	case outcomeSkipped:
		s.Skipped++
	case outcomeFailed:
		s.Failed++
	default:
		s.NotDue++
	}
}

type DispatcherConfig struct {
	PollInterval  time.Duration
	NotifyTimeout time.Duration
}

// Dispatcher scans pending reminders and delivers the ones whose fire time
// fell within the last poll interval. A reminder is due iff
// fireAt <= now && fireAt >= now-pollInterval.
type Dispatcher struct {
	queue         Queue
	events        EventResolver
	owners        OwnerDirectory
	sender        Sender
	clock         Clock
	log           *logger.Logger
	pollInterval  time.Duration
	notifyTimeout time.Duration

	running atomic.Bool
}

func NewDispatcher(queue Queue, events EventResolver, owners OwnerDirectory, sender Sender, clock Clock, log *logger.Logger, cfg DispatcherConfig) *Dispatcher {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	return &Dispatcher{
		queue:         queue,
		events:        events,
		owners:        owners,
		sender:        sender,
		clock:         clock,
		log:           log,
		pollInterval:  cfg.PollInterval,
		notifyTimeout: cfg.NotifyTimeout,
	}
}

func (d *Dispatcher) PollInterval() time.Duration {
	return d.pollInterval
}

// Tick runs one dispatch pass. It returns ran=false without doing anything
// when a previous tick is still in progress.
func (d *Dispatcher) Tick(ctx context.Context) (stats TickStats, ran bool) {
	if !d.running.CompareAndSwap(false, true) {
		d.log.Warn("DISPATCH", "Previous tick still running, skipping")
		return TickStats{}, false
	}
	defer d.running.Store(false)

	now := d.clock.Now()
	pending, err := d.queue.ListPending(ctx)
	if err != nil {
		d.log.Error("DISPATCH", fmt.Sprintf("Failed to list pending reminders: %v", err))
		return stats, true
	}
	stats.Pending = len(pending)

	for _, r := range pending {
		if ctx.Err() != nil {
			break
		}
		stats.record(d.process(ctx, r, now))
	}

	if stats.Sent+stats.Squelched+stats.Failed+stats.Skipped > 0 {
		d.log.Info("DISPATCH", fmt.Sprintf("Tick at %s: %d pending, %d sent, %d squelched, %d skipped, %d failed",
			now.Format(time.RFC3339), stats.Pending, stats.Sent, stats.Squelched, stats.Skipped, stats.Failed))
	}
	return stats, true
}

// process handles a single reminder. Panics are contained here so one bad
// reminder never stops the rest of the tick.
func (d *Dispatcher) process(ctx context.Context, r *models.Reminder, now time.Time) (result outcome) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("DISPATCH", fmt.Sprintf("[reminder %d] panic: %v", r.ReminderID, p))
			result = outcomeFailed
		}
	}()

	event, err := d.events.ResolveEvent(ctx, r.EventID)
	if errors.Is(err, models.ErrNotFound) {
		if err := d.queue.MarkSent(ctx, r.ReminderID, now); err != nil && !errors.Is(err, models.ErrNotFound) {
			d.log.Error("DISPATCH", fmt.Sprintf("[reminder %d] failed to squelch orphan: %v", r.ReminderID, err))
			return outcomeFailed
		}
		d.log.LogDispatch(r.ReminderID, fmt.Sprintf("event %d no longer exists, marked sent without notifying", r.EventID))
		return outcomeSquelched
	}
	if err != nil {
		d.log.Error("DISPATCH", fmt.Sprintf("[reminder %d] failed to resolve event %d: %v", r.ReminderID, r.EventID, err))
		return outcomeFailed
	}

	fireAt := r.FireAt(event.StartDate)
	if fireAt.After(now) || fireAt.Before(now.Add(-d.pollInterval)) {
		return outcomeNotDue
	}

	address, ok, err := d.owners.ResolveNotificationAddress(ctx, event.OwnerID)
	if err != nil {
		d.log.Error("DISPATCH", fmt.Sprintf("[reminder %d] failed to resolve owner %d: %v", r.ReminderID, event.OwnerID, err))
		return outcomeFailed
	}
	if !ok || !d.sender.ValidRecipient(address) {
		d.log.Warn("DISPATCH", fmt.Sprintf("[reminder %d] owner %d has no deliverable address %q, skipping", r.ReminderID, event.OwnerID, address))
		return outcomeSkipped
	}

	subject, body := d.render(ctx, event, r)

	sendCtx, cancel := context.WithTimeout(ctx, d.notifyTimeout)
	err = d.sender.Send(sendCtx, address, subject, body)
	cancel()
	if err != nil {
		d.log.Error("DISPATCH", fmt.Sprintf("[reminder %d] delivery failed: %v", r.ReminderID, err))
		return outcomeFailed
	}

	if err := d.queue.MarkSent(ctx, r.ReminderID, now); err != nil && !errors.Is(err, models.ErrNotFound) {
		d.log.Error("DISPATCH", fmt.Sprintf("[reminder %d] delivered but failed to mark sent: %v", r.ReminderID, err))
		return outcomeFailed
	}
	d.log.LogDispatch(r.ReminderID, fmt.Sprintf("sent to owner %d for event %d", event.OwnerID, event.ID))
	return outcomeSent
}

// render builds the subject and a Markdown body for a reminder.
func (d *Dispatcher) render(ctx context.Context, event *models.CalendarEvent, r *models.Reminder) (string, string) {
	subject := "Reminder: " + event.Title

	var sb strings.Builder
	sb.WriteString("⏰ **" + event.Title + "**\n")
	sb.WriteString("🕒 " + event.StartDate.UTC().Format("Mon 2006-01-02 15:04 MST"))
	if r.OffsetMinutes > 0 {
		sb.WriteString(" (in " + formatOffset(r.OffsetMinutes) + ")")
	}
	if inst, ok := event.AsInstance(); ok {
		if series, err := d.events.DescribeSeries(ctx, inst.DefinitionID); err == nil {
			sb.WriteString("\n🔄 " + series)
		}
	}
	if event.Description != "" {
		sb.WriteString("\n\n" + event.Description)
	}
	return subject, sb.String()
}

func formatOffset(minutes int) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	case minutes%(24*60) == 0:
		return fmt.Sprintf("%d d", minutes/(24*60))
	case minutes%60 == 0:
		return fmt.Sprintf("%d h", minutes/60)
	default:
		return fmt.Sprintf("%d h %d min", minutes/60, minutes%60)
	}
}
