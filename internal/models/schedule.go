package models

import "time"

type Schedule struct {
	ID             int64      `json:"id"`
	CardID         int64      `json:"card_id"`
	IntervalDays   int        `json:"interval_days"`
	Repetitions    int        `json:"repetitions"`
	EaseFactor     float64    `json:"ease_factor"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
}

type ReviewHistory struct {
	ID         int64     `json:"id"`
	CardID     int64     `json:"card_id"`
	Quality    int       `json:"quality"`
	ReviewedAt time.Time `json:"reviewed_at"`
}
