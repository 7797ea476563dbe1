package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"math/rand/v2"
	"time"

	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
	"github.com/vytor/linguatrack/internal/srs"
)

// ReviewService runs reviews through the scheduler and answers "what is due".
type ReviewService interface {
	Review(ctx context.Context, profileID, cardID int64, quality int) (*models.Schedule, error)
	Today(ctx context.Context, profileID int64, limit int) ([]models.CardWithSchedule, error)
	Next(ctx context.Context, profileID int64) (*models.CardWithSchedule, error)
	SetNextReview(ctx context.Context, profileID, cardID int64, at time.Time) error

	// MultipleChoice builds a question for cardID, or for the most overdue
	// card when cardID is 0. It returns nil when nothing is due.
	MultipleChoice(ctx context.Context, profileID, cardID int64) (*models.ChoiceQuestion, error)
	AnswerChoice(ctx context.Context, profileID, cardID int64, translation string) (*models.ChoiceResult, error)
	MatchingRound(ctx context.Context, profileID int64, size int) (*models.MatchingRound, error)
	SubmitMatching(ctx context.Context, profileID int64, matches []models.Match) (*models.MatchingResult, error)
}

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// ReviewOption configures a ReviewService.
type ReviewOption func(*reviewService)

// WithShuffle replaces the random order used by quiz modes.
func WithShuffle(fn ShuffleFunc) ReviewOption {
	return func(s *reviewService) { s.shuffle = fn }
}

type reviewService struct {
	cardRepo     repository.CardRepository
	scheduleRepo repository.ScheduleRepository
	clock        clock.Clock
	shuffle      ShuffleFunc
}

// NewReviewService creates a new ReviewService
func NewReviewService(cardRepo repository.CardRepository, scheduleRepo repository.ScheduleRepository, clk clock.Clock, opts ...ReviewOption) ReviewService {
	s := &reviewService{cardRepo: cardRepo, scheduleRepo: scheduleRepo, clock: clk, shuffle: rand.Shuffle}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reviewService) Review(ctx context.Context, profileID, cardID int64, quality int) (*models.Schedule, error) {
	log := logger.FromContext(ctx)
	log.Debug("reviewing card: profile_id=%d, card_id=%d, quality=%d", profileID, cardID, quality)

	q := srs.Quality(quality)
	if !q.Valid() {
		return nil, errors.NewValidationError("quality", "must be between 0 and 5")
	}

	now := s.clock.Now()
	next, err := s.scheduleRepo.Review(ctx, profileID, cardID, quality, now, func(prior models.Schedule) models.Schedule {
		return srs.Apply(prior, q, now)
	})
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("card", cardID)
		}
		log.Error("failed to review card: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Debug("applied review, new interval=%d days, ease_factor=%.2f", next.IntervalDays, next.EaseFactor)
	return next, nil
}

// Today returns the due cards, most overdue first. limit <= 0 returns all of them.
func (s *reviewService) Today(ctx context.Context, profileID int64, limit int) ([]models.CardWithSchedule, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting due cards: profile_id=%d, limit=%d", profileID, limit)

	cards, err := s.cardRepo.ListWithSchedules(ctx, profileID)
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, errors.NewInternalError(err)
	}

	due := srs.SelectDue(cards, s.clock.Now())
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	log.Debug("found %d due cards out of %d", len(due), len(cards))
	return due, nil
}

// Next returns the most overdue card, or nil when nothing is due.
func (s *reviewService) Next(ctx context.Context, profileID int64) (*models.CardWithSchedule, error) {
	due, err := s.Today(ctx, profileID, 1)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		logger.FromContext(ctx).Debug("no cards due for review")
		return nil, nil
	}
	return &due[0], nil
}

func (s *reviewService) SetNextReview(ctx context.Context, profileID, cardID int64, at time.Time) error {
	log := logger.FromContext(ctx)
	log.Debug("overriding next review: profile_id=%d, card_id=%d", profileID, cardID)

	if at.IsZero() {
		return errors.NewValidationError("next_review_at", "cannot be empty")
	}
	if err := s.scheduleRepo.SetNextReview(ctx, profileID, cardID, at.UTC()); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("card", cardID)
		}
		log.Error("failed to set next review: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}
