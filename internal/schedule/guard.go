package schedule

import (
	"math"
	"time"

	"motivator/internal/domain"
)

// Guard applies the hard vetoes that run after a positive draw. Only delivered
// scheduled sends count; failed attempts and mood reminders are excluded by the store.
type Guard struct {
	CeilingFactor float64
}

// Ceiling is the maximum number of delivered sends per local day.
func (g Guard) Ceiling(frequency int) int {
	f := g.CeilingFactor
	if f < 1 {
		f = 2
	}
	return int(math.Ceil(float64(domain.ClampFrequency(frequency)) * f))
}

// Check returns ReasonSend when neither the minimum gap nor the daily ceiling
// would be violated by a send at now.
func (g Guard) Check(now time.Time, lastSend *time.Time, todayCount int, p domain.TimingPreference, frequency int) domain.Reason {
	if lastSend != nil && now.Sub(*lastSend) < p.MinGap() {
		return domain.ReasonMinGap
	}
	if todayCount >= g.Ceiling(frequency) {
		return domain.ReasonDailyCeiling
	}
	return domain.ReasonSend
}
