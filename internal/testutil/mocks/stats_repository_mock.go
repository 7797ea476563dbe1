package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/linguatrack/internal/models"
)

// MockStatsRepository is a mock implementation of repository.StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) Get(ctx context.Context, profileID int64) (*models.Stats, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stats), args.Error(1)
}

func (m *MockStatsRepository) LearnedCount(ctx context.Context, profileID int64, minRepetitions int) (int, error) {
	args := m.Called(ctx, profileID, minRepetitions)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) LevelCounts(ctx context.Context, profileID int64) (map[models.Level]int, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Level]int), args.Error(1)
}

func (m *MockStatsRepository) UnlearnedCount(ctx context.Context, profileID int64, level models.Level, minRepetitions int) (int, error) {
	args := m.Called(ctx, profileID, level, minRepetitions)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) DueCount(ctx context.Context, profileID int64, now time.Time) (int, error) {
	args := m.Called(ctx, profileID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) ReviewsSince(ctx context.Context, profileID int64, since time.Time) (int, error) {
	args := m.Called(ctx, profileID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) DueCountsByChat(ctx context.Context, now time.Time) ([]models.DueCount, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DueCount), args.Error(1)
}
