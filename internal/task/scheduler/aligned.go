package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// alignedSchedule fires on multiples of every counted from local midnight in
// the time's own location, so a 1h interval fires at :00 and 30m at :00/:30.
// Intervals that do not divide a day restart at each midnight.
type alignedSchedule struct {
	every time.Duration
}

var _ cron.Schedule = alignedSchedule{}

func AlignedEvery(every time.Duration) cron.Schedule {
	if every < time.Second {
		every = time.Second
	}
	return alignedSchedule{every: every}
}

func (s alignedSchedule) Next(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	elapsed := t.Sub(midnight)
	next := midnight.Add((elapsed/s.every + 1) * s.every)
	tomorrow := time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
	if !next.Before(tomorrow) {
		return tomorrow
	}
	return next
}
