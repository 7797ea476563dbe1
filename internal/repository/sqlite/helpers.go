package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Helper functions shared across repository implementations

type rowScanner interface {
	Scan(dest ...any) error
}

func tx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	log := logger.FromContext(ctx).WithPrefix("repo")
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		log.Debug("transaction rolled back due to error: %v", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction: %v", err)
		return err
	}
	log.Debug("transaction committed")
	return nil
}

// requireAffected turns a zero-row update or delete into sql.ErrNoRows.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// utc normalizes timestamps before binding so stored values compare correctly as text.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return utc(*t)
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

const cardColumns = `c.id, c.profile_id, c.word, c.translation, c.example, c.note, c.level, c.created_at, c.updated_at,
       s.id, s.interval_days, s.repetitions, s.ease_factor, s.next_review_at, s.last_reviewed_at`

// scanCard reads a card joined (LEFT JOIN) with its schedule.
func scanCard(row rowScanner) (models.CardWithSchedule, error) {
	var (
		c            models.CardWithSchedule
		level        string
		schedID      sql.NullInt64
		interval     sql.NullInt64
		repetitions  sql.NullInt64
		ease         sql.NullFloat64
		nextReview   sql.NullTime
		lastReviewed sql.NullTime
	)
	err := row.Scan(&c.ID, &c.ProfileID, &c.Word, &c.Translation, &c.Example, &c.Note, &level, &c.CreatedAt, &c.UpdatedAt,
		&schedID, &interval, &repetitions, &ease, &nextReview, &lastReviewed)
	if err != nil {
		return c, err
	}
	c.Level = models.Level(level)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if schedID.Valid {
		c.Schedule = &models.Schedule{
			ID:             schedID.Int64,
			CardID:         c.ID,
			IntervalDays:   int(interval.Int64),
			Repetitions:    int(repetitions.Int64),
			EaseFactor:     ease.Float64,
			NextReviewAt:   nextReview.Time.UTC(),
			LastReviewedAt: timePtr(lastReviewed),
		}
	}
	return c, nil
}

const scheduleColumns = `id, card_id, interval_days, repetitions, ease_factor, next_review_at, last_reviewed_at`

func scanSchedule(row rowScanner) (models.Schedule, error) {
	var (
		s            models.Schedule
		lastReviewed sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.CardID, &s.IntervalDays, &s.Repetitions, &s.EaseFactor, &s.NextReviewAt, &lastReviewed); err != nil {
		return s, err
	}
	s.NextReviewAt = s.NextReviewAt.UTC()
	s.LastReviewedAt = timePtr(lastReviewed)
	return s, nil
}
