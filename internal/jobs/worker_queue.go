package jobs

import (
	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/notify"
	"github.com/vytor/linguatrack/internal/repository"
	"github.com/vytor/linguatrack/internal/services"
	"github.com/vytor/linguatrack/internal/worker"
)

// WorkerQueue implements JobQueue using worker pools
type WorkerQueue struct {
	reminderPool        *worker.Pool
	importPool          *worker.Pool
	statsRepo           repository.StatsRepository
	importJobs          services.ImportJobService
	notifier            notify.Notifier
	clock               clock.Clock
	reminderConcurrency int
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(
	reminderPool *worker.Pool,
	importPool *worker.Pool,
	statsRepo repository.StatsRepository,
	importJobs services.ImportJobService,
	notifier notify.Notifier,
	clk clock.Clock,
	reminderConcurrency int,
) JobQueue {
	return &WorkerQueue{
		reminderPool:        reminderPool,
		importPool:          importPool,
		statsRepo:           statsRepo,
		importJobs:          importJobs,
		notifier:            notifier,
		clock:               clk,
		reminderConcurrency: reminderConcurrency,
	}
}

// EnqueueReminders never blocks: when a run is already queued the new one is dropped.
func (q *WorkerQueue) EnqueueReminders() error {
	return q.reminderPool.TrySubmit(&worker.ReminderJob{
		StatsRepo:   q.statsRepo,
		Notifier:    q.notifier,
		Clock:       q.clock,
		Concurrency: q.reminderConcurrency,
	})
}

// EnqueueImport returns worker.ErrQueueFull when the import queue has no room.
func (q *WorkerQueue) EnqueueImport(job models.ImportJob, data []byte) error {
	return q.importPool.TrySubmit(&worker.ImportCardsJob{
		Jobs: q.importJobs,
		Job:  job,
		Data: data,
	})
}
