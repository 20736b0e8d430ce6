package schedule

import (
	"time"

	"motivator/internal/domain"
)

// Params is the read-only tick configuration. It is swapped as a whole on reload.
type Params struct {
	TickInterval time.Duration
	// PeakShare is the expected share of daily sends that land in peak windows.
	PeakShare float64
	// CeilingFactor bounds delivered sends per local day to ceil(F * CeilingFactor).
	CeilingFactor float64

	Reminders  bool
	ReminderAt domain.ClockTime

	DispatchTimeout    time.Duration
	Workers            int
	DuplicateAvoidance int

	// Location is used for users without a valid timezone.
	Location *time.Location
}

func DefaultParams() Params {
	return Params{
		TickInterval:       time.Hour,
		PeakShare:          0.6,
		CeilingFactor:      2,
		Reminders:          true,
		ReminderAt:         domain.Clock(20, 0),
		DispatchTimeout:    15 * time.Second,
		Workers:            1,
		DuplicateAvoidance: 5,
		Location:           time.UTC,
	}
}

// normalized fills zero or out-of-range fields with defaults.
func (p Params) normalized() Params {
	def := DefaultParams()
	if p.TickInterval < time.Minute {
		p.TickInterval = def.TickInterval
	}
	if p.PeakShare <= 0 || p.PeakShare >= 1 {
		p.PeakShare = def.PeakShare
	}
	if p.CeilingFactor < 1 {
		p.CeilingFactor = def.CeilingFactor
	}
	if p.DispatchTimeout <= 0 {
		p.DispatchTimeout = def.DispatchTimeout
	}
	if p.Workers <= 0 {
		p.Workers = def.Workers
	}
	if p.DuplicateAvoidance < 0 {
		p.DuplicateAvoidance = 0
	}
	if p.Location == nil {
		p.Location = def.Location
	}
	return p
}
