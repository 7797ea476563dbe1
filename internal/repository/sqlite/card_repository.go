package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
	"github.com/vytor/linguatrack/internal/srs"
)

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card models.Card, now time.Time) (*models.CardWithSchedule, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("creating card: profile_id=%d, word=%s, level=%s", card.ProfileID, card.Word, card.Level)

	now = utc(now)
	var created models.CardWithSchedule
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO cards (profile_id, word, translation, example, note, level, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, card.ProfileID, card.Word, card.Translation, card.Example, card.Note, string(card.Level), now, now)
		if err != nil {
			log.Error("failed to insert card: %v", err)
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		sched, err := getOrCreateSchedule(ctx, tx, id, now)
		if err != nil {
			log.Error("failed to create schedule for card %d: %v", id, err)
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO stats (profile_id, total_words)
VALUES (?, 1)
ON CONFLICT(profile_id) DO UPDATE SET total_words = total_words + 1
`, card.ProfileID); err != nil {
			log.Error("failed to bump total words: %v", err)
			return err
		}

		created.Card = card
		created.ID = id
		created.CreatedAt = now
		created.UpdatedAt = now
		created.Schedule = sched
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("card created: id=%d", created.ID)
	return &created, nil
}

func (r *cardRepository) Get(ctx context.Context, profileID, id int64) (*models.CardWithSchedule, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("getting card: profile_id=%d, id=%d", profileID, id)

	query, args, err := selectCards().
		Where(squirrel.Eq{"c.id": id, "c.profile_id": profileID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	c, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("card not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get card: %v", err)
		return nil, err
	}
	return &c, nil
}

func (r *cardRepository) List(ctx context.Context, filter models.CardFilter) ([]models.CardWithSchedule, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("listing cards: profile_id=%d, level=%s, search=%q, limit=%d, offset=%d",
		filter.ProfileID, filter.Level, filter.Search, filter.Limit, filter.Offset)

	qb := applyCardFilter(selectCards(), filter).OrderBy("c.created_at DESC", "c.id DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	cards, err := r.query(ctx, qb)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, err
	}
	log.Debug("found %d cards", len(cards))
	return cards, nil
}

func (r *cardRepository) Count(ctx context.Context, filter models.CardFilter) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("counting cards: profile_id=%d, level=%s, search=%q", filter.ProfileID, filter.Level, filter.Search)

	query, args, err := applyCardFilter(sqlBuilder.Select("COUNT(*)").From("cards c"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Error("failed to count cards: %v", err)
		return 0, err
	}
	return count, nil
}

func (r *cardRepository) ListWithSchedules(ctx context.Context, profileID int64) ([]models.CardWithSchedule, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("listing cards with schedules: profile_id=%d", profileID)

	cards, err := r.query(ctx, selectCards().Where(squirrel.Eq{"c.profile_id": profileID}).OrderBy("c.id ASC"))
	if err != nil {
		log.Error("failed to list cards with schedules: %v", err)
		return nil, err
	}
	return cards, nil
}

func (r *cardRepository) Update(ctx context.Context, card models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("updating card: id=%d", card.ID)

	res, err := r.db.ExecContext(ctx, `
UPDATE cards
SET word = ?, translation = ?, example = ?, note = ?, level = ?, updated_at = ?
WHERE id = ? AND profile_id = ?
`, card.Word, card.Translation, card.Example, card.Note, string(card.Level), utc(card.UpdatedAt), card.ID, card.ProfileID)
	if err != nil {
		log.Error("failed to update card: %v", err)
		return err
	}
	return requireAffected(res)
}

func (r *cardRepository) Delete(ctx context.Context, profileID, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("deleting card: profile_id=%d, id=%d", profileID, id)

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ? AND profile_id = ?`, id, profileID)
		if err != nil {
			log.Error("failed to delete card: %v", err)
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE stats SET total_words = MAX(total_words - 1, 0) WHERE profile_id = ?`, profileID)
		if err != nil {
			log.Error("failed to decrement total words: %v", err)
		}
		return err
	})
}

func (r *cardRepository) query(ctx context.Context, qb squirrel.SelectBuilder) ([]models.CardWithSchedule, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.CardWithSchedule
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func selectCards() squirrel.SelectBuilder {
	return sqlBuilder.Select(cardColumns).
		From("cards c").
		LeftJoin("schedules s ON s.card_id = c.id")
}

func applyCardFilter(qb squirrel.SelectBuilder, filter models.CardFilter) squirrel.SelectBuilder {
	qb = qb.Where(squirrel.Eq{"c.profile_id": filter.ProfileID})
	if filter.Level != "" {
		qb = qb.Where(squirrel.Eq{"c.level": string(filter.Level)})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		qb = qb.Where(squirrel.Or{
			squirrel.Like{"c.word": pattern},
			squirrel.Like{"c.translation": pattern},
		})
	}
	return qb
}

// getOrCreateSchedule inserts the initial schedule unless the card already has one
// and returns whatever row is stored.
func getOrCreateSchedule(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, cardID int64, now time.Time) (*models.Schedule, error) {
	initial := srs.Initial(cardID, utc(now))
	if _, err := q.ExecContext(ctx, `
INSERT INTO schedules (card_id, interval_days, repetitions, ease_factor, next_review_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(card_id) DO NOTHING
`, initial.CardID, initial.IntervalDays, initial.Repetitions, initial.EaseFactor, initial.NextReviewAt); err != nil {
		return nil, err
	}
	s, err := scanSchedule(q.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE card_id = ?`, cardID))
	if err != nil {
		return nil, err
	}
	return &s, nil
}
