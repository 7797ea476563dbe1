package models

import (
	"fmt"
	"strings"
	"time"
)

// Level is the difficulty tag of a card.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists every valid level in display order.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel maps a user supplied label to a Level. The Russian labels used by
// older CSV exports are accepted as well.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner", "начальный":
		return LevelBeginner, nil
	case "intermediate", "средний":
		return LevelIntermediate, nil
	case "advanced", "продвинутый":
		return LevelAdvanced, nil
	default:
		return "", fmt.Errorf("unknown level %q", s)
	}
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

func (l Level) String() string { return string(l) }

type Card struct {
	ID          int64     `json:"id"`
	ProfileID   int64     `json:"profile_id"`
	Word        string    `json:"word"`
	Translation string    `json:"translation"`
	Example     string    `json:"example,omitempty"`
	Note        string    `json:"note,omitempty"`
	Level       Level     `json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CardWithSchedule pairs a card with its schedule. Schedule is nil only when
// the row is missing, which selection treats as not due.
type CardWithSchedule struct {
	Card
	Schedule *Schedule `json:"schedule"`
}

type CardFilter struct {
	ProfileID int64
	Level     Level
	Search    string
	Limit     int
	Offset    int
}
