package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository implementation
func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, username, display_name, chat_id, created_at`

// maxChatNameAttempts bounds the suffixes tried when chat<id> is taken.
const maxChatNameAttempts = 20

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p      models.Profile
		chatID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &chatID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if chatID.Valid {
		id := chatID.Int64
		p.ChatID = &id
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (r *profileRepository) Upsert(ctx context.Context, username string) (*models.Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("upserting profile for username: %s", username)

	p, err := scanProfile(r.db.QueryRowContext(ctx, `
INSERT INTO profiles (username)
VALUES (?)
ON CONFLICT(username) DO UPDATE SET username = excluded.username
RETURNING `+profileColumns, username))
	if err != nil {
		log.Error("failed to upsert profile: %v", err)
		return nil, err
	}
	log.Debug("profile upserted: id=%d", p.ID)
	return p, nil
}

func (r *profileRepository) CreateForChat(ctx context.Context, chatID int64, displayName string) (*models.Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("creating profile for chat: chat_id=%d", chatID)

	var created *models.Profile
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanProfile(tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE chat_id = ?`, chatID))
		if err == nil {
			created = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// A web profile may already use the chat-derived name; pick the
		// first free suffix instead of taking that profile over.
		for attempt := 1; attempt <= maxChatNameAttempts; attempt++ {
			username := fmt.Sprintf("chat%d", chatID)
			if attempt > 1 {
				username = fmt.Sprintf("%s-%d", username, attempt)
			}
			p, err := scanProfile(tx.QueryRowContext(ctx, `
INSERT INTO profiles (username, display_name, chat_id)
VALUES (?, ?, ?)
ON CONFLICT(username) DO NOTHING
RETURNING `+profileColumns, username, displayName, chatID))
			if errors.Is(err, sql.ErrNoRows) {
				log.Debug("username %s taken, trying next", username)
				continue
			}
			if err != nil {
				return err
			}
			created = p
			return nil
		}
		return fmt.Errorf("no free username for chat %d", chatID)
	})
	if err != nil {
		log.Error("failed to create profile for chat %d: %v", chatID, err)
		return nil, err
	}
	log.Debug("chat %d owns profile %d (%s)", chatID, created.ID, created.Username)
	return created, nil
}

func (r *profileRepository) List(ctx context.Context) ([]models.Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("listing profiles")

	rows, err := r.db.QueryContext(ctx, `
SELECT `+profileColumns+`
FROM profiles
ORDER BY created_at ASC, id ASC
`)
	if err != nil {
		log.Error("failed to list profiles: %v", err)
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			log.Error("failed to scan profile row: %v", err)
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	log.Debug("found %d profiles", len(profiles))
	return profiles, rows.Err()
}

func (r *profileRepository) Get(ctx context.Context, id int64) (*models.Profile, error) {
	return r.getBy(ctx, "id", id)
}

func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	return r.getBy(ctx, "username", username)
}

func (r *profileRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Profile, error) {
	return r.getBy(ctx, "chat_id", chatID)
}

func (r *profileRepository) getBy(ctx context.Context, column string, value any) (*models.Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("getting profile: %s=%v", column, value)

	query, args, err := sqlBuilder.Select(profileColumns).From("profiles").Where(column+" = ?", value).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("profile not found: %s=%v", column, value)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get profile: %v", err)
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("deleting profile and related data: id=%d", id)

	// cards, schedules, review history and stats follow through ON DELETE CASCADE
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete profile %d: %v", id, err)
		return err
	}
	if err := requireAffected(res); err != nil {
		log.Debug("profile %d not found for delete", id)
		return err
	}
	log.Debug("profile %d deleted with cascading data", id)
	return nil
}
