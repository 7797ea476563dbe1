package models

import "time"

// RowError describes one CSV row that could not be imported.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

// ImportJobStatus is the lifecycle state of a background import.
type ImportJobStatus string

const (
	ImportQueued  ImportJobStatus = "queued"
	ImportRunning ImportJobStatus = "running"
	ImportDone    ImportJobStatus = "done"
	ImportFailed  ImportJobStatus = "failed"
)

// ImportJob records a background CSV import and, once finished, its result.
type ImportJob struct {
	ID         int64           `json:"id"`
	ProfileID  int64           `json:"profile_id"`
	Status     ImportJobStatus `json:"status"`
	SizeBytes  int             `json:"size_bytes"`
	Imported   int             `json:"imported"`
	Errors     []RowError      `json:"errors"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (j ImportJob) Finished() bool {
	return j.Status == ImportDone || j.Status == ImportFailed
}
