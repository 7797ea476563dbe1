package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
	"github.com/vytor/linguatrack/internal/srs"
)

type scheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new ScheduleRepository implementation
func NewScheduleRepository(db *sql.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) GetOrCreate(ctx context.Context, cardID int64, now time.Time) (*models.Schedule, error) {
	log := logger.FromContext(ctx).WithPrefix("schedule_repo")
	log.Debug("get or create schedule: card_id=%d", cardID)

	s, err := getOrCreateSchedule(ctx, r.db, cardID, now)
	if err != nil {
		log.Error("failed to get or create schedule: %v", err)
		return nil, err
	}
	return s, nil
}

// Review loads the card's schedule (creating it if missing), replaces it with
// fn's result, appends a history row and updates the profile counters. All of
// it happens in one transaction so concurrent reviews of the same card never
// interleave. Returns sql.ErrNoRows if the card does not belong to the profile.
func (r *scheduleRepository) Review(ctx context.Context, profileID, cardID int64, quality int, now time.Time, fn repository.ReviewFunc) (*models.Schedule, error) {
	log := logger.FromContext(ctx).WithPrefix("schedule_repo")
	log.Debug("reviewing card: profile_id=%d, card_id=%d, quality=%d", profileID, cardID, quality)

	now = utc(now)
	var next models.Schedule
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		var owner int64
		if err := tx.QueryRowContext(ctx, `SELECT profile_id FROM cards WHERE id = ? AND profile_id = ?`, cardID, profileID).Scan(&owner); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				log.Error("failed to check card owner: %v", err)
			}
			return err
		}

		prior, err := getOrCreateSchedule(ctx, tx, cardID, now)
		if err != nil {
			log.Error("failed to load schedule: %v", err)
			return err
		}

		next = fn(*prior)
		next.ID = prior.ID
		next.CardID = cardID

		if _, err := tx.ExecContext(ctx, `
UPDATE schedules
SET interval_days = ?, repetitions = ?, ease_factor = ?, next_review_at = ?, last_reviewed_at = ?
WHERE id = ?
`, next.IntervalDays, next.Repetitions, next.EaseFactor, utc(next.NextReviewAt), nullableTime(next.LastReviewedAt), next.ID); err != nil {
			log.Error("failed to update schedule: %v", err)
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO review_history (card_id, quality, reviewed_at)
VALUES (?, ?, ?)
`, cardID, quality, now); err != nil {
			log.Error("failed to insert review history: %v", err)
			return err
		}

		wrong := 0
		if !srs.Quality(quality).Passed() {
			wrong = 1
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO stats (profile_id, total_reviews, wrong_answers, last_review_at)
VALUES (?, 1, ?, ?)
ON CONFLICT(profile_id) DO UPDATE SET
    total_reviews = total_reviews + 1,
    wrong_answers = wrong_answers + excluded.wrong_answers,
    last_review_at = excluded.last_review_at
`, profileID, wrong, now); err != nil {
			log.Error("failed to update stats: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("card %d reviewed: interval=%d, reps=%d, ease=%.2f, next=%s",
		cardID, next.IntervalDays, next.Repetitions, next.EaseFactor, next.NextReviewAt.Format(time.RFC3339))
	return &next, nil
}

func (r *scheduleRepository) SetNextReview(ctx context.Context, profileID, cardID int64, at time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("schedule_repo")
	log.Debug("setting next review: profile_id=%d, card_id=%d, at=%s", profileID, cardID, at.Format(time.RFC3339))

	res, err := r.db.ExecContext(ctx, `
UPDATE schedules
SET next_review_at = ?
WHERE card_id IN (SELECT id FROM cards WHERE id = ? AND profile_id = ?)
`, utc(at), cardID, profileID)
	if err != nil {
		log.Error("failed to set next review: %v", err)
		return err
	}
	return requireAffected(res)
}

func (r *scheduleRepository) History(ctx context.Context, profileID, cardID int64, limit int) ([]models.ReviewHistory, error) {
	log := logger.FromContext(ctx).WithPrefix("schedule_repo")
	log.Debug("listing review history: profile_id=%d, card_id=%d, limit=%d", profileID, cardID, limit)

	qb := sqlBuilder.Select("h.id", "h.card_id", "h.quality", "h.reviewed_at").
		From("review_history h").
		Join("cards c ON c.id = h.card_id").
		Where("h.card_id = ? AND c.profile_id = ?", cardID, profileID).
		OrderBy("h.reviewed_at DESC", "h.id DESC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list review history: %v", err)
		return nil, err
	}
	defer rows.Close()

	var history []models.ReviewHistory
	for rows.Next() {
		var h models.ReviewHistory
		if err := rows.Scan(&h.ID, &h.CardID, &h.Quality, &h.ReviewedAt); err != nil {
			log.Error("failed to scan review history row: %v", err)
			return nil, err
		}
		h.ReviewedAt = h.ReviewedAt.UTC()
		history = append(history, h)
	}
	return history, rows.Err()
}
