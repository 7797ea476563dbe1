package srs_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/srs"
)

func cardDueAt(id int64, at time.Time) models.CardWithSchedule {
	return models.CardWithSchedule{
		Card:     models.Card{ID: id, Word: "w", Translation: "t", Level: models.LevelBeginner},
		Schedule: &models.Schedule{CardID: id, IntervalDays: 1, EaseFactor: 2.5, NextReviewAt: at},
	}
}

func ids(cards []models.CardWithSchedule) []int64 {
	out := make([]int64, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestSelectDue_Scenario(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cards := []models.CardWithSchedule{
		cardDueAt(1, now.Add(-24*time.Hour)),
		cardDueAt(2, now.Add(24*time.Hour)),
		cardDueAt(3, now),
	}

	due := srs.SelectDue(cards, now)

	if diff := cmp.Diff([]int64{1, 3}, ids(due)); diff != "" {
		t.Errorf("due cards mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectDue_OrdersMostOverdueFirst(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cards := []models.CardWithSchedule{
		cardDueAt(10, now.Add(-time.Hour)),
		cardDueAt(11, now.Add(-72*time.Hour)),
		cardDueAt(12, now.Add(-5*time.Minute)),
		cardDueAt(13, now.Add(-48*time.Hour)),
	}

	due := srs.SelectDue(cards, now)

	assert.Equal(t, []int64{11, 13, 10, 12}, ids(due))
	for i := 1; i < len(due); i++ {
		assert.False(t, due[i].Schedule.NextReviewAt.Before(due[i-1].Schedule.NextReviewAt))
	}
}

func TestSelectDue_TiesBrokenByID(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	at := now.Add(-time.Hour)
	cards := []models.CardWithSchedule{cardDueAt(9, at), cardDueAt(2, at), cardDueAt(5, at)}

	assert.Equal(t, []int64{2, 5, 9}, ids(srs.SelectDue(cards, now)))
}

func TestSelectDue_SkipsMissingSchedule(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	orphan := models.CardWithSchedule{Card: models.Card{ID: 4}}
	cards := []models.CardWithSchedule{orphan, cardDueAt(5, now.Add(-time.Minute))}

	due := srs.SelectDue(cards, now)

	assert.Equal(t, []int64{5}, ids(due))
}

func TestSelectDue_Empty(t *testing.T) {
	now := time.Now()
	assert.Empty(t, srs.SelectDue(nil, now))
	assert.Empty(t, srs.SelectDue([]models.CardWithSchedule{cardDueAt(1, now.Add(time.Second))}, now))
}

func TestSelectDue_DoesNotReorderInput(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cards := []models.CardWithSchedule{cardDueAt(2, now), cardDueAt(1, now.Add(-time.Hour))}

	first := srs.SelectDue(cards, now)
	second := srs.SelectDue(cards, now)

	assert.Equal(t, []int64{2, 1}, ids(cards))
	assert.Equal(t, ids(first), ids(second))
}

func TestSelectDue_FilterProperty(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var cards []models.CardWithSchedule
	for i := int64(0); i < 40; i++ {
		offset := time.Duration(i*7%23-11) * time.Hour
		c := cardDueAt(i, now.Add(offset))
		if i%9 == 0 {
			c.Schedule = nil
		}
		cards = append(cards, c)
	}

	due := srs.SelectDue(cards, now)
	returned := make(map[int64]bool, len(due))
	for _, c := range due {
		require.NotNil(t, c.Schedule)
		assert.False(t, c.Schedule.NextReviewAt.After(now))
		returned[c.ID] = true
	}
	for _, c := range cards {
		if returned[c.ID] {
			continue
		}
		assert.True(t, c.Schedule == nil || c.Schedule.NextReviewAt.After(now),
			"card %d excluded while due", c.ID)
	}
}
