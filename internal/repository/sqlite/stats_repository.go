package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository implementation
func NewStatsRepository(db *sql.DB) repository.StatsRepository {
	return &statsRepository{db: db}
}

// Get returns the profile counters. A profile that never added a card gets zeroes.
func (r *statsRepository) Get(ctx context.Context, profileID int64) (*models.Stats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("getting stats: profile_id=%d", profileID)

	s := models.Stats{ProfileID: profileID}
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `
SELECT total_words, total_reviews, wrong_answers, last_review_at
FROM stats
WHERE profile_id = ?
`, profileID).Scan(&s.TotalWords, &s.TotalReviews, &s.WrongAnswers, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return &s, nil
	}
	if err != nil {
		log.Error("failed to get stats: %v", err)
		return nil, err
	}
	s.LastReviewAt = timePtr(last)
	return &s, nil
}

func (r *statsRepository) LearnedCount(ctx context.Context, profileID int64, minRepetitions int) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("counting learned cards: profile_id=%d, min_reps=%d", profileID, minRepetitions)

	return r.count(ctx, sqlBuilder.Select("COUNT(*)").
		From("schedules s").
		Join("cards c ON c.id = s.card_id").
		Where(squirrel.Eq{"c.profile_id": profileID}).
		Where(squirrel.GtOrEq{"s.repetitions": minRepetitions}))
}

func (r *statsRepository) LevelCounts(ctx context.Context, profileID int64) (map[models.Level]int, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("counting cards by level: profile_id=%d", profileID)

	rows, err := r.db.QueryContext(ctx, `
SELECT level, COUNT(*)
FROM cards
WHERE profile_id = ?
GROUP BY level
`, profileID)
	if err != nil {
		log.Error("failed to count levels: %v", err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Level]int, len(models.Levels))
	for _, l := range models.Levels {
		counts[l] = 0
	}
	for rows.Next() {
		var (
			level string
			n     int
		)
		if err := rows.Scan(&level, &n); err != nil {
			log.Error("failed to scan level count: %v", err)
			return nil, err
		}
		counts[models.Level(level)] = n
	}
	return counts, rows.Err()
}

// UnlearnedCount counts cards of a level that are still below minRepetitions,
// including cards with no schedule row.
func (r *statsRepository) UnlearnedCount(ctx context.Context, profileID int64, level models.Level, minRepetitions int) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("counting unlearned cards: profile_id=%d, level=%s", profileID, level)

	return r.count(ctx, sqlBuilder.Select("COUNT(*)").
		From("cards c").
		LeftJoin("schedules s ON s.card_id = c.id").
		Where(squirrel.Eq{"c.profile_id": profileID, "c.level": string(level)}).
		Where(squirrel.Or{
			squirrel.Eq{"s.id": nil},
			squirrel.Lt{"s.repetitions": minRepetitions},
		}))
}

func (r *statsRepository) DueCount(ctx context.Context, profileID int64, now time.Time) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("counting due cards: profile_id=%d", profileID)

	return r.count(ctx, sqlBuilder.Select("COUNT(*)").
		From("schedules s").
		Join("cards c ON c.id = s.card_id").
		Where(squirrel.Eq{"c.profile_id": profileID}).
		Where(squirrel.LtOrEq{"s.next_review_at": utc(now)}))
}

func (r *statsRepository) ReviewsSince(ctx context.Context, profileID int64, since time.Time) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("counting reviews since %s: profile_id=%d", since.Format(time.RFC3339), profileID)

	return r.count(ctx, sqlBuilder.Select("COUNT(*)").
		From("review_history h").
		Join("cards c ON c.id = h.card_id").
		Where(squirrel.Eq{"c.profile_id": profileID}).
		Where(squirrel.GtOrEq{"h.reviewed_at": utc(since)}))
}

// DueCountsByChat lists profiles with a linked chat and at least one due card.
func (r *statsRepository) DueCountsByChat(ctx context.Context, now time.Time) ([]models.DueCount, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("counting due cards per chat")

	query, args, err := sqlBuilder.Select("p.id", "p.username", "p.chat_id", "COUNT(s.id)").
		From("profiles p").
		Join("cards c ON c.profile_id = p.id").
		Join("schedules s ON s.card_id = c.id").
		Where(squirrel.NotEq{"p.chat_id": nil}).
		Where(squirrel.LtOrEq{"s.next_review_at": utc(now)}).
		GroupBy("p.id", "p.username", "p.chat_id").
		OrderBy("p.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to count due cards per chat: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.DueCount
	for rows.Next() {
		var dc models.DueCount
		if err := rows.Scan(&dc.ProfileID, &dc.Username, &dc.ChatID, &dc.Due); err != nil {
			log.Error("failed to scan due count: %v", err)
			return nil, err
		}
		out = append(out, dc)
	}
	log.Debug("found %d chats with due cards", len(out))
	return out, rows.Err()
}

func (r *statsRepository) count(ctx context.Context, qb squirrel.SelectBuilder) (int, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.FromContext(ctx).WithPrefix("stats_repo").Error("count query failed: %v", err)
		return 0, err
	}
	return n, nil
}
