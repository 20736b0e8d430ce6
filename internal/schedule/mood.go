package schedule

import (
	"sort"
	"time"

	"motivator/internal/domain"
)

const (
	strongBoost       = 2.0
	strongBoostScore  = 2
	strongBoostWithin = 12 * time.Hour

	mildBoost       = 1.5
	mildBoostScore  = 4
	mildBoostWithin = 24 * time.Hour

	// A score at or above recoveryScore supersedes every older entry.
	recoveryScore = 5

	// MoodLookback is how far back mood entries influence a tick.
	MoodLookback = 24 * time.Hour
)

// MoodBoost returns the frequency multiplier for recent mood. It is 1 when
// disabled or when the most recent entries show no low mood. Among consecutive
// low entries the strongest applicable boost wins.
func MoodBoost(entries []domain.MoodEntry, now time.Time, enabled bool) float64 {
	if !enabled || len(entries) == 0 {
		return 1
	}
	sorted := newestFirst(entries)

	boost := 1.0
	for _, e := range sorted {
		age := now.Sub(e.At)
		if age < 0 {
			age = 0
		}
		if age > mildBoostWithin {
			break
		}
		if e.Score >= recoveryScore {
			break
		}
		if e.Score <= strongBoostScore && age <= strongBoostWithin {
			boost = max(boost, strongBoost)
		}
		if e.Score <= mildBoostScore {
			boost = max(boost, mildBoost)
		}
	}
	return boost
}

// Latest returns the newest entry or nil.
func Latest(entries []domain.MoodEntry) *domain.MoodEntry {
	if len(entries) == 0 {
		return nil
	}
	e := newestFirst(entries)[0]
	return &e
}

func newestFirst(entries []domain.MoodEntry) []domain.MoodEntry {
	out := append([]domain.MoodEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return out
}

var (
	lowMoodCategories  = []domain.Category{domain.CategoryDepression, domain.CategoryAnxiety, domain.CategorySelfCare}
	midMoodCategories  = []domain.Category{domain.CategoryStress, domain.CategoryGeneral, domain.CategorySelfCare}
	highMoodCategories = []domain.Category{domain.CategoryMotivation, domain.CategoryGeneral}
	noMoodCategories   = []domain.Category{domain.CategoryGeneral, domain.CategoryMotivation}
)

// CategoryCandidates maps the latest mood to the categories content may be drawn from.
func CategoryCandidates(latest *domain.MoodEntry) []domain.Category {
	switch {
	case latest == nil:
		return noMoodCategories
	case latest.Score <= 3:
		return lowMoodCategories
	case latest.Score <= 6:
		return midMoodCategories
	default:
		return highMoodCategories
	}
}

// CategoryFor picks one candidate category uniformly.
func CategoryFor(latest *domain.MoodEntry, rnd Sampler) domain.Category {
	c := CategoryCandidates(latest)
	i := int(rnd.Float64() * float64(len(c)))
	if i >= len(c) {
		i = len(c) - 1
	}
	return c[i]
}
