package models

import (
	"math"
	"time"
)

// Stats holds the per-profile review counters kept in sync by card creation,
// deletion and reviews.
type Stats struct {
	ProfileID    int64      `json:"profile_id"`
	TotalWords   int        `json:"total_words"`
	TotalReviews int        `json:"total_reviews"`
	WrongAnswers int        `json:"wrong_answers"`
	LastReviewAt *time.Time `json:"last_review_at"`
}

// SuccessPercent returns the percentage of correct answers rounded to two decimals.
func (s Stats) SuccessPercent() float64 {
	if s.TotalReviews == 0 {
		return 0
	}
	correct := s.TotalReviews - s.WrongAnswers
	pct := float64(correct) / float64(s.TotalReviews) * 100
	return math.Round(pct*100) / 100
}

type UserStats struct {
	Stats
	LearnedWords  int           `json:"learned_words"`
	SuccessRate   float64       `json:"success_rate"`
	LevelCounts   map[Level]int `json:"level_counts"`
	DueToday      int           `json:"due_today"`
	RecentReviews int           `json:"recent_reviews"`
}

type Recommendation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// DueCount is the number of due cards for one chat-linked profile.
type DueCount struct {
	ProfileID int64
	Username  string
	ChatID    int64
	Due       int
}
