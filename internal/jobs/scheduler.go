package jobs

import (
	"context"
	"time"

	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/logger"
)

// NextRun returns the next hour:00 UTC strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Scheduler enqueues the daily reminder run at a fixed UTC hour.
type Scheduler struct {
	queue JobQueue
	clock clock.Clock
	hour  int
	// after is replaceable so tests do not have to wait a day.
	after func(time.Duration) <-chan time.Time
}

func NewScheduler(queue JobQueue, clk clock.Clock, hour int) *Scheduler {
	return &Scheduler{queue: queue, clock: clk, hour: hour, after: time.After}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")
	for {
		next := NextRun(s.clock.Now(), s.hour)
		wait := next.Sub(s.clock.Now())
		log.Info("next reminder run at %s (in %v)", next.Format(time.RFC3339), wait.Round(time.Second))

		select {
		case <-ctx.Done():
			log.Debug("scheduler stopped")
			return
		case <-s.after(wait):
			if err := s.queue.EnqueueReminders(); err != nil {
				log.Warn("failed to enqueue reminders: %v", err)
			}
		}
	}
}
