package repository

import (
	"context"
	"time"

	"github.com/vytor/linguatrack/internal/models"
)

// ProfileRepository handles profile data access
type ProfileRepository interface {
	Get(ctx context.Context, id int64) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Upsert(ctx context.Context, username string) (*models.Profile, error)
	// CreateForChat returns the profile owned by chatID, creating a new one
	// under a chat-derived username when none exists. It never attaches the
	// chat to an existing profile.
	CreateForChat(ctx context.Context, chatID int64, displayName string) (*models.Profile, error)
	Delete(ctx context.Context, id int64) error
}

// CardRepository handles card data access. Create is the only way a card
// comes into existence and always writes its initial schedule with it.
type CardRepository interface {
	Create(ctx context.Context, card models.Card, now time.Time) (*models.CardWithSchedule, error)
	Get(ctx context.Context, profileID, id int64) (*models.CardWithSchedule, error)
	List(ctx context.Context, filter models.CardFilter) ([]models.CardWithSchedule, error)
	Count(ctx context.Context, filter models.CardFilter) (int, error)
	ListWithSchedules(ctx context.Context, profileID int64) ([]models.CardWithSchedule, error)
	Update(ctx context.Context, card models.Card) error
	Delete(ctx context.Context, profileID, id int64) error
}

// ReviewFunc maps the stored schedule to the one that should replace it.
type ReviewFunc func(prior models.Schedule) models.Schedule

// ScheduleRepository handles schedule data access. Review serializes the
// read-modify-write of one card's schedule in a single transaction.
type ScheduleRepository interface {
	GetOrCreate(ctx context.Context, cardID int64, now time.Time) (*models.Schedule, error)
	Review(ctx context.Context, profileID, cardID int64, quality int, now time.Time, fn ReviewFunc) (*models.Schedule, error)
	SetNextReview(ctx context.Context, profileID, cardID int64, at time.Time) error
	History(ctx context.Context, profileID, cardID int64, limit int) ([]models.ReviewHistory, error)
}

// StatsRepository handles statistics data access
type StatsRepository interface {
	Get(ctx context.Context, profileID int64) (*models.Stats, error)
	LearnedCount(ctx context.Context, profileID int64, minRepetitions int) (int, error)
	LevelCounts(ctx context.Context, profileID int64) (map[models.Level]int, error)
	UnlearnedCount(ctx context.Context, profileID int64, level models.Level, minRepetitions int) (int, error)
	DueCount(ctx context.Context, profileID int64, now time.Time) (int, error)
	ReviewsSince(ctx context.Context, profileID int64, since time.Time) (int, error)
	DueCountsByChat(ctx context.Context, now time.Time) ([]models.DueCount, error)
}

// ImportJobRepository records background CSV imports so their results can be
// fetched after the request that queued them has returned.
type ImportJobRepository interface {
	Create(ctx context.Context, profileID int64, sizeBytes int, now time.Time) (*models.ImportJob, error)
	Get(ctx context.Context, profileID, id int64) (*models.ImportJob, error)
	MarkRunning(ctx context.Context, id int64) error
	Finish(ctx context.Context, id int64, result models.ImportResult, now time.Time) error
	Fail(ctx context.Context, id int64, reason string, now time.Time) error
	// FailUnfinished fails every queued or running job; their payloads are
	// lost on restart.
	FailUnfinished(ctx context.Context, reason string, now time.Time) (int, error)
}
