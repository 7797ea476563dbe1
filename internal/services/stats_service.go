package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

const (
	// LearnedRepetitions is the number of successful reviews in a row after
	// which a card counts as learned.
	LearnedRepetitions      = 3
	intermediateRepetitions = 5
	recentWindow            = 7 * 24 * time.Hour
	lowSuccessMinReviews    = 10
	lowSuccessThreshold     = 60.0
)

// StatsService handles statistics-related business logic
type StatsService interface {
	GetUserStats(ctx context.Context, profileID int64) (*models.UserStats, error)
	GetRecommendations(ctx context.Context, profileID int64) ([]models.Recommendation, error)
}

type statsService struct {
	statsRepo repository.StatsRepository
	clock     clock.Clock
}

// NewStatsService creates a new StatsService
func NewStatsService(statsRepo repository.StatsRepository, clk clock.Clock) StatsService {
	return &statsService{statsRepo: statsRepo, clock: clk}
}

func (s *statsService) GetUserStats(ctx context.Context, profileID int64) (*models.UserStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting user stats: profile_id=%d", profileID)

	now := s.clock.Now()

	base, err := s.statsRepo.Get(ctx, profileID)
	if err != nil {
		log.Error("failed to get stats: %v", err)
		return nil, errors.NewInternalError(err)
	}

	learned, err := s.statsRepo.LearnedCount(ctx, profileID, LearnedRepetitions)
	if err != nil {
		log.Error("failed to count learned cards: %v", err)
		return nil, errors.NewInternalError(err)
	}

	levels, err := s.statsRepo.LevelCounts(ctx, profileID)
	if err != nil {
		log.Error("failed to count levels: %v", err)
		return nil, errors.NewInternalError(err)
	}

	due, err := s.statsRepo.DueCount(ctx, profileID, now)
	if err != nil {
		log.Error("failed to count due cards: %v", err)
		return nil, errors.NewInternalError(err)
	}

	recent, err := s.statsRepo.ReviewsSince(ctx, profileID, now.Add(-recentWindow))
	if err != nil {
		log.Error("failed to count recent reviews: %v", err)
		return nil, errors.NewInternalError(err)
	}

	return &models.UserStats{
		Stats:         *base,
		LearnedWords:  learned,
		SuccessRate:   base.SuccessPercent(),
		LevelCounts:   levels,
		DueToday:      due,
		RecentReviews: recent,
	}, nil
}

func (s *statsService) GetRecommendations(ctx context.Context, profileID int64) ([]models.Recommendation, error) {
	log := logger.FromContext(ctx)
	log.Debug("building recommendations: profile_id=%d", profileID)

	stats, err := s.GetUserStats(ctx, profileID)
	if err != nil {
		return nil, err
	}

	var recs []models.Recommendation

	beginner, err := s.statsRepo.UnlearnedCount(ctx, profileID, models.LevelBeginner, LearnedRepetitions)
	if err != nil {
		log.Error("failed to count beginner cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if beginner > 0 {
		recs = append(recs, models.Recommendation{
			Type:    "beginner",
			Message: fmt.Sprintf("Review %d beginner words", beginner),
			Count:   beginner,
		})
	}

	intermediate, err := s.statsRepo.UnlearnedCount(ctx, profileID, models.LevelIntermediate, intermediateRepetitions)
	if err != nil {
		log.Error("failed to count intermediate cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if intermediate > 0 {
		recs = append(recs, models.Recommendation{
			Type:    "intermediate",
			Message: fmt.Sprintf("Spend some time on %d intermediate words", intermediate),
			Count:   intermediate,
		})
	}

	if stats.DueToday > 0 {
		recs = append(recs, models.Recommendation{
			Type:    "today",
			Message: fmt.Sprintf("You have %d cards to review today", stats.DueToday),
			Count:   stats.DueToday,
		})
	}

	if stats.TotalReviews > lowSuccessMinReviews && stats.SuccessRate < lowSuccessThreshold {
		recs = append(recs, models.Recommendation{
			Type:    "low_success",
			Message: fmt.Sprintf("Your success rate is low (%.2f%%). Keep practicing!", stats.SuccessRate),
		})
	}

	return recs, nil
}
