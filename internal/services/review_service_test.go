package services_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/services"
	"github.com/vytor/linguatrack/internal/testutil/mocks"
)

func newReviewService() (services.ReviewService, *mocks.MockCardRepository, *mocks.MockScheduleRepository) {
	cards := new(mocks.MockCardRepository)
	schedules := new(mocks.MockScheduleRepository)
	return services.NewReviewService(cards, schedules, clock.Fixed(fixedNow)), cards, schedules
}

func dueCard(id int64, at time.Time) models.CardWithSchedule {
	return models.CardWithSchedule{
		Card:     models.Card{ID: id, ProfileID: 1},
		Schedule: &models.Schedule{CardID: id, IntervalDays: 1, EaseFactor: 2.5, NextReviewAt: at},
	}
}

func TestReview_AppliesSM2WithInjectedClock(t *testing.T) {
	svc, _, schedules := newReviewService()
	prior := models.Schedule{ID: 1, CardID: 4, IntervalDays: 6, Repetitions: 2, EaseFactor: 2.5}
	schedules.On("Review", mock.Anything, int64(1), int64(4), 3, fixedNow, mock.Anything).Return(prior, nil)

	next, err := svc.Review(context.Background(), 1, 4, 3)

	require.NoError(t, err)
	assert.Equal(t, 15, next.IntervalDays)
	assert.Equal(t, 3, next.Repetitions)
	assert.InDelta(t, 2.36, next.EaseFactor, 1e-9)
	assert.Equal(t, fixedNow.Add(15*24*time.Hour), next.NextReviewAt)
	require.NotNil(t, next.LastReviewedAt)
	assert.Equal(t, fixedNow, *next.LastReviewedAt)
}

func TestReview_RejectsOutOfRangeQuality(t *testing.T) {
	svc, _, schedules := newReviewService()

	for _, q := range []int{-1, 6, 100} {
		_, err := svc.Review(context.Background(), 1, 4, q)
		assert.Equal(t, errors.ErrCodeValidation, errors.As(err).Code, "quality %d", q)
	}
	schedules.AssertNotCalled(t, "Review", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReview_UnknownCard(t *testing.T) {
	svc, _, schedules := newReviewService()
	schedules.On("Review", mock.Anything, int64(1), int64(4), 5, fixedNow, mock.Anything).Return(nil, sql.ErrNoRows)

	_, err := svc.Review(context.Background(), 1, 4, 5)

	assert.True(t, errors.IsNotFound(err))
}

func TestToday_SelectsAndLimits(t *testing.T) {
	svc, cards, _ := newReviewService()
	cards.On("ListWithSchedules", mock.Anything, int64(1)).Return([]models.CardWithSchedule{
		dueCard(1, fixedNow.Add(-time.Hour)),
		dueCard(2, fixedNow.Add(time.Hour)),
		dueCard(3, fixedNow.Add(-48*time.Hour)),
		dueCard(4, fixedNow),
	}, nil)

	all, err := svc.Today(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 4}, cardIDs(all))

	limited, err := svc.Today(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, cardIDs(limited))
}

func TestNext(t *testing.T) {
	svc, cards, _ := newReviewService()
	cards.On("ListWithSchedules", mock.Anything, int64(1)).Return([]models.CardWithSchedule{
		dueCard(8, fixedNow.Add(-time.Minute)),
		dueCard(5, fixedNow.Add(-time.Minute)),
	}, nil).Once()
	cards.On("ListWithSchedules", mock.Anything, int64(2)).Return([]models.CardWithSchedule{
		dueCard(1, fixedNow.Add(time.Minute)),
	}, nil).Once()

	next, err := svc.Next(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, int64(5), next.ID, "ties broken by id")

	none, err := svc.Next(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSetNextReview(t *testing.T) {
	svc, _, schedules := newReviewService()
	at := fixedNow.Add(72 * time.Hour)
	schedules.On("SetNextReview", mock.Anything, int64(1), int64(2), at).Return(nil)
	schedules.On("SetNextReview", mock.Anything, int64(1), int64(3), at).Return(sql.ErrNoRows)

	assert.NoError(t, svc.SetNextReview(context.Background(), 1, 2, at))
	assert.True(t, errors.IsNotFound(svc.SetNextReview(context.Background(), 1, 3, at)))
	assert.Equal(t, errors.ErrCodeValidation, errors.As(svc.SetNextReview(context.Background(), 1, 2, time.Time{})).Code)
}

func cardIDs(cards []models.CardWithSchedule) []int64 {
	out := make([]int64, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}
