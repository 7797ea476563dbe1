package srs

import (
	"cmp"
	"slices"
	"time"

	"github.com/vytor/linguatrack/internal/models"
)

// SelectDue returns the cards whose next review is at or before now, most
// overdue first. Ties are broken by card id. Cards without a schedule are
// skipped. The input slice is not modified.
func SelectDue(cards []models.CardWithSchedule, now time.Time) []models.CardWithSchedule {
	due := make([]models.CardWithSchedule, 0, len(cards))
	for _, c := range cards {
		if IsDue(c, now) {
			due = append(due, c)
		}
	}

	slices.SortFunc(due, func(a, b models.CardWithSchedule) int {
		if c := a.Schedule.NextReviewAt.Compare(b.Schedule.NextReviewAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return due
}

// IsDue reports whether c has a schedule that has come due at now.
func IsDue(c models.CardWithSchedule, now time.Time) bool {
	return c.Schedule != nil && !c.Schedule.NextReviewAt.After(now)
}
