package domain

import "time"

const (
	MinMoodScore = 1
	MaxMoodScore = 10
)

// MoodEntry is an append-only self-reported mood sample.
type MoodEntry struct {
	ID     int64
	UserID int64
	Score  int
	Note   string
	At     time.Time
}

func ValidMoodScore(s int) bool { return s >= MinMoodScore && s <= MaxMoodScore }
