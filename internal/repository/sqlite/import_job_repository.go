package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

type importJobRepository struct {
	db *sql.DB
}

// NewImportJobRepository creates a new ImportJobRepository implementation
func NewImportJobRepository(db *sql.DB) repository.ImportJobRepository {
	return &importJobRepository{db: db}
}

const importJobColumns = `id, profile_id, status, size_bytes, imported, row_errors, error, created_at, finished_at`

func scanImportJob(row rowScanner) (*models.ImportJob, error) {
	var (
		j         models.ImportJob
		rowErrors string
		finished  sql.NullTime
	)
	if err := row.Scan(&j.ID, &j.ProfileID, &j.Status, &j.SizeBytes, &j.Imported, &rowErrors, &j.Error, &j.CreatedAt, &finished); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rowErrors), &j.Errors); err != nil {
		return nil, err
	}
	if j.Errors == nil {
		j.Errors = []models.RowError{}
	}
	j.CreatedAt = j.CreatedAt.UTC()
	j.FinishedAt = timePtr(finished)
	return &j, nil
}

func (r *importJobRepository) Create(ctx context.Context, profileID int64, sizeBytes int, now time.Time) (*models.ImportJob, error) {
	log := logger.FromContext(ctx).WithPrefix("import_job_repo")
	log.Debug("creating import job: profile_id=%d size=%d", profileID, sizeBytes)

	j, err := scanImportJob(r.db.QueryRowContext(ctx, `
INSERT INTO import_jobs (profile_id, status, size_bytes, created_at)
VALUES (?, ?, ?, ?)
RETURNING `+importJobColumns, profileID, models.ImportQueued, sizeBytes, utc(now)))
	if err != nil {
		log.Error("failed to create import job: %v", err)
		return nil, err
	}
	log.Debug("import job created: id=%d", j.ID)
	return j, nil
}

func (r *importJobRepository) Get(ctx context.Context, profileID, id int64) (*models.ImportJob, error) {
	log := logger.FromContext(ctx).WithPrefix("import_job_repo")
	log.Debug("getting import job: profile_id=%d id=%d", profileID, id)

	query, args, err := sqlBuilder.Select(importJobColumns).
		From("import_jobs").
		Where(squirrel.Eq{"id": id, "profile_id": profileID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	j, err := scanImportJob(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get import job %d: %v", id, err)
		return nil, err
	}
	return j, nil
}

func (r *importJobRepository) MarkRunning(ctx context.Context, id int64) error {
	return r.update(ctx, id, squirrel.Eq{"status": models.ImportQueued}, map[string]any{
		"status": models.ImportRunning,
	})
}

func (r *importJobRepository) Finish(ctx context.Context, id int64, result models.ImportResult, now time.Time) error {
	rowErrors := result.Errors
	if rowErrors == nil {
		rowErrors = []models.RowError{}
	}
	encoded, err := json.Marshal(rowErrors)
	if err != nil {
		return err
	}
	return r.update(ctx, id, squirrel.Eq{"status": []models.ImportJobStatus{models.ImportQueued, models.ImportRunning}}, map[string]any{
		"status":      models.ImportDone,
		"imported":    result.Imported,
		"row_errors":  string(encoded),
		"finished_at": utc(now),
	})
}

func (r *importJobRepository) Fail(ctx context.Context, id int64, reason string, now time.Time) error {
	return r.update(ctx, id, squirrel.Eq{"status": []models.ImportJobStatus{models.ImportQueued, models.ImportRunning}}, map[string]any{
		"status":      models.ImportFailed,
		"error":       reason,
		"finished_at": utc(now),
	})
}

// update changes one job, but only while it is in one of the given states, so
// a finished job is never rewritten.
func (r *importJobRepository) update(ctx context.Context, id int64, state squirrel.Eq, set map[string]any) error {
	log := logger.FromContext(ctx).WithPrefix("import_job_repo")
	log.Debug("updating import job %d: status=%v", id, set["status"])

	query, args, err := sqlBuilder.Update("import_jobs").
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		Where(state).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update import job %d: %v", id, err)
		return err
	}
	return requireAffected(res)
}

func (r *importJobRepository) FailUnfinished(ctx context.Context, reason string, now time.Time) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("import_job_repo")
	log.Debug("failing unfinished import jobs")

	query, args, err := sqlBuilder.Update("import_jobs").
		Set("status", models.ImportFailed).
		Set("error", reason).
		Set("finished_at", utc(now)).
		Where(squirrel.Eq{"status": []models.ImportJobStatus{models.ImportQueued, models.ImportRunning}}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to fail unfinished import jobs: %v", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
