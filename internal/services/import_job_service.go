package services

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

// ImportJobService tracks background imports from queueing to their result.
type ImportJobService interface {
	CreateJob(ctx context.Context, profileID int64, sizeBytes int) (*models.ImportJob, error)
	GetJob(ctx context.Context, profileID, id int64) (*models.ImportJob, error)
	// RunJob imports data for a queued job and records the outcome on it.
	RunJob(ctx context.Context, job models.ImportJob, data []byte) (*ImportResult, error)
	FailJob(ctx context.Context, id int64, reason string) error
	FailUnfinished(ctx context.Context) (int, error)
}

type importJobService struct {
	jobRepo repository.ImportJobRepository
	imports ImportService
	clock   clock.Clock
}

// NewImportJobService creates a new ImportJobService
func NewImportJobService(jobRepo repository.ImportJobRepository, imports ImportService, clk clock.Clock) ImportJobService {
	return &importJobService{jobRepo: jobRepo, imports: imports, clock: clk}
}

func (s *importJobService) CreateJob(ctx context.Context, profileID int64, sizeBytes int) (*models.ImportJob, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating import job: profile_id=%d", profileID)

	job, err := s.jobRepo.Create(ctx, profileID, sizeBytes, s.clock.Now())
	if err != nil {
		log.Error("failed to create import job: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return job, nil
}

func (s *importJobService) GetJob(ctx context.Context, profileID, id int64) (*models.ImportJob, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting import job: profile_id=%d id=%d", profileID, id)

	job, err := s.jobRepo.Get(ctx, profileID, id)
	if err != nil {
		log.Error("failed to get import job: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if job == nil {
		return nil, errors.NewNotFoundError("import job", id)
	}
	return job, nil
}

func (s *importJobService) RunJob(ctx context.Context, job models.ImportJob, data []byte) (*ImportResult, error) {
	log := logger.FromContext(ctx).WithField("import_job", job.ID)

	if err := s.jobRepo.MarkRunning(ctx, job.ID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewConflictError("import job is not queued")
		}
		log.Error("failed to mark import job running: %v", err)
		return nil, errors.NewInternalError(err)
	}

	res, err := ImportBytes(ctx, s.imports, job.ProfileID, data)
	if err != nil {
		if ferr := s.jobRepo.Fail(ctx, job.ID, errors.As(err).Message, s.clock.Now()); ferr != nil {
			log.Error("failed to record import failure: %v", ferr)
		}
		return nil, err
	}
	if err := s.jobRepo.Finish(ctx, job.ID, *res, s.clock.Now()); err != nil {
		log.Error("failed to record import result: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Info("import job finished: imported=%d row_errors=%d", res.Imported, len(res.Errors))
	return res, nil
}

func (s *importJobService) FailJob(ctx context.Context, id int64, reason string) error {
	log := logger.FromContext(ctx)
	log.Debug("failing import job %d: %s", id, reason)

	if err := s.jobRepo.Fail(ctx, id, reason, s.clock.Now()); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("import job", id)
		}
		log.Error("failed to fail import job: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

// FailUnfinished closes out jobs a previous process never finished.
func (s *importJobService) FailUnfinished(ctx context.Context) (int, error) {
	n, err := s.jobRepo.FailUnfinished(ctx, "interrupted by restart", s.clock.Now())
	if err != nil {
		logger.FromContext(ctx).Error("failed to close unfinished import jobs: %v", err)
		return 0, errors.NewInternalError(err)
	}
	return n, nil
}
