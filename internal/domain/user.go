package domain

import (
	"strings"
	"time"
)

const (
	MinFrequency = 1
	MaxFrequency = 5

	DefaultFrequency = 2
	DefaultLanguage  = "en"
)

// User is a registered recipient. Users are never deleted; Active=false pauses them.
type User struct {
	ID        int64 // Telegram chat id
	Username  string
	FirstName string
	Language  string
	Frequency int // target messages per day (1..5)
	Active    bool
	Timezone  string // IANA name, best-effort
	CreatedAt time.Time
}

// Location resolves the user's timezone, falling back when it is empty or unknown.
func (u *User) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	tz := strings.TrimSpace(u.Timezone)
	if tz == "" {
		return fallback
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fallback
	}
	return loc
}

// ClampFrequency keeps f inside [MinFrequency, MaxFrequency].
func ClampFrequency(f int) int {
	if f < MinFrequency {
		return MinFrequency
	}
	if f > MaxFrequency {
		return MaxFrequency
	}
	return f
}

// StartOfDay returns local midnight of t in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
