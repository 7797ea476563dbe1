// Package srs implements the SM-2 review scheduler and the due-set selector.
// Everything here is pure: no storage, no ambient clock, no shared state.
package srs

import (
	"strconv"
	"strings"
	"time"

	"github.com/vytor/linguatrack/internal/models"
)

const (
	DefaultIntervalDays = 1
	DefaultEaseFactor   = 2.5
	MinEaseFactor       = 1.3

	failureEasePenalty = 0.2
	secondInterval     = 6
)

// Quality is the self-assessed recall score of a review.
// 0-2 count as a failed recall, 3-5 as a successful one.
type Quality int

const (
	MinQuality     Quality = 0
	PassingQuality Quality = 3
	MaxQuality     Quality = 5
)

// Valid reports whether q lies in [MinQuality, MaxQuality].
func (q Quality) Valid() bool { return q >= MinQuality && q <= MaxQuality }

// Passed reports whether q counts as a successful recall.
func (q Quality) Passed() bool { return q >= PassingQuality }

// ClampQuality forces a raw score into [0,5]. Every input boundary (web form,
// JSON body, bot callback, CLI flag) goes through it before reaching Compute.
func ClampQuality(q int) Quality {
	switch {
	case q < int(MinQuality):
		return MinQuality
	case q > int(MaxQuality):
		return MaxQuality
	}
	return Quality(q)
}

// ParseQuality parses a decimal score and clamps it.
func ParseQuality(s string) (Quality, error) {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return ClampQuality(q), nil
}

// Result is the scheduling outcome of a single review.
type Result struct {
	IntervalDays int
	EaseFactor   float64
	Repetitions  int
}

// Compute runs SM-2 for one review. q must already be in [0,5]; Compute does
// not validate it.
func Compute(prior models.Schedule, q Quality) Result {
	if !q.Passed() {
		return Result{
			IntervalDays: DefaultIntervalDays,
			EaseFactor:   floorEase(prior.EaseFactor - failureEasePenalty),
			Repetitions:  0,
		}
	}

	var interval int
	switch prior.Repetitions {
	case 0:
		interval = DefaultIntervalDays
	case 1:
		interval = secondInterval
	default:
		interval = int(float64(prior.IntervalDays) * prior.EaseFactor)
	}
	if interval < DefaultIntervalDays {
		interval = DefaultIntervalDays
	}

	d := float64(MaxQuality - q)
	ef := prior.EaseFactor + (0.1 - d*(0.08+d*0.02))

	return Result{
		IntervalDays: interval,
		EaseFactor:   floorEase(ef),
		Repetitions:  prior.Repetitions + 1,
	}
}

// Apply computes the next schedule for a review performed at now.
func Apply(prior models.Schedule, q Quality, now time.Time) models.Schedule {
	res := Compute(prior, q)

	next := prior
	next.IntervalDays = res.IntervalDays
	next.EaseFactor = res.EaseFactor
	next.Repetitions = res.Repetitions
	next.NextReviewAt = now.Add(time.Duration(res.IntervalDays) * 24 * time.Hour)
	reviewed := now
	next.LastReviewedAt = &reviewed
	return next
}

// Initial returns the schedule every new card starts with: due immediately.
func Initial(cardID int64, now time.Time) models.Schedule {
	return models.Schedule{
		CardID:       cardID,
		IntervalDays: DefaultIntervalDays,
		Repetitions:  0,
		EaseFactor:   DefaultEaseFactor,
		NextReviewAt: now,
	}
}

func floorEase(ef float64) float64 {
	if ef < MinEaseFactor {
		return MinEaseFactor
	}
	return ef
}
