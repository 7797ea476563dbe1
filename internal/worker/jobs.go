package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/notify"
	"github.com/vytor/linguatrack/internal/repository"
	"github.com/vytor/linguatrack/internal/services"
)

const defaultReminderConcurrency = 8

// ReminderMessage is the text sent to a chat with due cards.
func ReminderMessage(due int) string {
	return fmt.Sprintf("Reminder!\n\nYou have %d cards to review today.\n\nUse /today to see the list or /test for a quick quiz!", due)
}

// ReminderSummary describes one reminder run.
type ReminderSummary struct {
	RunID    string
	Profiles int
	Sent     int
	Failed   int
}

// ReminderJob notifies every chat-linked profile that has cards due.
type ReminderJob struct {
	StatsRepo   repository.StatsRepository
	Notifier    notify.Notifier
	Clock       clock.Clock
	Concurrency int
}

func (j *ReminderJob) Name() string { return "send_reminders" }

func (j *ReminderJob) Run(ctx context.Context) error {
	_, err := j.Execute(ctx)
	return err
}

// Execute sends the reminders. A failed delivery is logged and counted but
// does not stop the run; only failing to load the due counts is an error.
func (j *ReminderJob) Execute(ctx context.Context) (ReminderSummary, error) {
	summary := ReminderSummary{RunID: uuid.NewString()}
	log := logger.FromContext(ctx).WithField("run_id", summary.RunID)
	log.Info("starting reminder run")

	counts, err := j.StatsRepo.DueCountsByChat(ctx, j.Clock.Now())
	if err != nil {
		log.Error("failed to load due counts: %v", err)
		return summary, err
	}
	summary.Profiles = len(counts)

	limit := j.Concurrency
	if limit <= 0 {
		limit = defaultReminderConcurrency
	}

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, dc := range counts {
		g.Go(func() error {
			plog := log.WithFields(map[string]any{"profile_id": dc.ProfileID, "chat_id": dc.ChatID})
			if err := j.Notifier.Notify(logger.NewContext(gctx, plog), dc.ChatID, ReminderMessage(dc.Due)); err != nil {
				plog.Error("failed to send reminder to %s: %v", dc.Username, err)
				failed.Add(1)
				return nil
			}
			plog.Debug("reminder sent: due=%d", dc.Due)
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	summary.Sent = int(sent.Load())
	summary.Failed = int(failed.Load())
	log.Info("reminder run finished: profiles=%d, sent=%d, failed=%d", summary.Profiles, summary.Sent, summary.Failed)
	return summary, nil
}

// ImportCardsJob runs a queued import and stores its result on the job row.
type ImportCardsJob struct {
	Jobs services.ImportJobService
	Job  models.ImportJob
	Data []byte
}

func (j *ImportCardsJob) Name() string { return "import_cards" }

func (j *ImportCardsJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{"profile_id": j.Job.ProfileID, "import_job": j.Job.ID})
	log.Info("starting background import of %d bytes", len(j.Data))

	res, err := j.Jobs.RunJob(logger.NewContext(ctx, log), j.Job, j.Data)
	if err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		log.Warn("import finished with %d row errors", len(res.Errors))
	}
	return nil
}
