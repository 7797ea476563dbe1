package jobs

import "github.com/vytor/linguatrack/internal/models"

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	EnqueueReminders() error
	EnqueueImport(job models.ImportJob, data []byte) error
}
