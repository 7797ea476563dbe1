package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

// MockScheduleRepository is a mock implementation of repository.ScheduleRepository.
// When a Review expectation returns a models.Schedule value, it is treated as the
// stored prior and fn is applied to it.
type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) GetOrCreate(ctx context.Context, cardID int64, now time.Time) (*models.Schedule, error) {
	args := m.Called(ctx, cardID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Review(ctx context.Context, profileID, cardID int64, quality int, now time.Time, fn repository.ReviewFunc) (*models.Schedule, error) {
	args := m.Called(ctx, profileID, cardID, quality, now, fn)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if prior, ok := args.Get(0).(models.Schedule); ok {
		next := fn(prior)
		return &next, nil
	}
	if args.Get(0) == nil {
		return nil, nil
	}
	return args.Get(0).(*models.Schedule), nil
}

func (m *MockScheduleRepository) SetNextReview(ctx context.Context, profileID, cardID int64, at time.Time) error {
	args := m.Called(ctx, profileID, cardID, at)
	return args.Error(0)
}

func (m *MockScheduleRepository) History(ctx context.Context, profileID, cardID int64, limit int) ([]models.ReviewHistory, error) {
	args := m.Called(ctx, profileID, cardID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewHistory), args.Error(1)
}
