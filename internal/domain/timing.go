package domain

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day with minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

func Clock(h, m int) ClockTime { return ClockTime{Hour: h, Minute: m} }

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// wellFormed accepts 00:00 through 24:00.
func (c ClockTime) wellFormed() bool {
	if c.Hour < 0 || c.Minute < 0 || c.Minute > 59 {
		return false
	}
	return c.Minutes() <= 24*60
}

// ClockFromMinutes converts minutes since midnight; 1440 is kept as 24:00.
func ClockFromMinutes(m int) ClockTime {
	if m < 0 {
		m = 0
	}
	if m > 24*60 {
		m = 24 * 60
	}
	return ClockTime{Hour: m / 60, Minute: m % 60}
}

// MinuteOfDay returns minutes since local midnight for t.
func MinuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// Window is a half-open time-of-day interval [Start, End). Wrapping past midnight
// is not supported.
type Window struct {
	Start ClockTime
	End   ClockTime
}

func (w Window) Contains(minuteOfDay int) bool {
	return minuteOfDay >= w.Start.Minutes() && minuteOfDay < w.End.Minutes()
}

func (w Window) Width() time.Duration {
	return time.Duration(w.End.Minutes()-w.Start.Minutes()) * time.Minute
}

func (w Window) String() string { return w.Start.String() + "-" + w.End.String() }

type DistributionStyle string

const (
	StylePeakFocused DistributionStyle = "peak_focused"
	StyleEvenSpacing DistributionStyle = "even_spacing"
	StyleRandom      DistributionStyle = "random"
)

func ParseStyle(s string) (DistributionStyle, error) {
	switch DistributionStyle(s) {
	case StylePeakFocused, StyleEvenSpacing, StyleRandom:
		return DistributionStyle(s), nil
	default:
		return "", fmt.Errorf("unknown distribution style %q", s)
	}
}

const (
	MinGapHoursMin = 1
	MinGapHoursMax = 6

	PeakMorning   = 0
	PeakAfternoon = 1
	PeakEvening   = 2
)

// TimingPreference holds one user's delivery timing settings.
type TimingPreference struct {
	UserID      int64
	Active      Window
	MinGapHours int
	Style       DistributionStyle
	MoodBoost   bool
	AutoAdjust  bool
	Peaks       [3]Window // morning, afternoon, evening
	UpdatedAt   time.Time
}

// DefaultTimingPreference returns the system defaults:
// active 08:00-22:00, 3h gap, peak_focused, boost and auto-adjust on,
// peaks 08-10 / 14-16 / 18-20.
func DefaultTimingPreference(userID int64) TimingPreference {
	return TimingPreference{
		UserID:      userID,
		Active:      Window{Start: Clock(8, 0), End: Clock(22, 0)},
		MinGapHours: 3,
		Style:       StylePeakFocused,
		MoodBoost:   true,
		AutoAdjust:  true,
		Peaks: [3]Window{
			{Start: Clock(8, 0), End: Clock(10, 0)},
			{Start: Clock(14, 0), End: Clock(16, 0)},
			{Start: Clock(18, 0), End: Clock(20, 0)},
		},
	}
}

func (p TimingPreference) MinGap() time.Duration {
	return time.Duration(p.MinGapHours) * time.Hour
}

// InPeak reports whether minuteOfDay falls inside any peak window.
func (p TimingPreference) InPeak(minuteOfDay int) bool {
	for _, w := range p.Peaks {
		if w.Contains(minuteOfDay) {
			return true
		}
	}
	return false
}

// Validate checks structural invariants. Peak windows may lie partly outside
// the active window but must be well-formed.
func (p TimingPreference) Validate() error {
	if !p.Active.Start.wellFormed() || !p.Active.End.wellFormed() {
		return &InvalidPreferenceError{Field: "active_window", Reason: "time out of range"}
	}
	if p.Active.Start.Minutes() >= p.Active.End.Minutes() {
		return &InvalidPreferenceError{Field: "active_window", Reason: "start must be before end"}
	}
	if p.MinGapHours < MinGapHoursMin || p.MinGapHours > MinGapHoursMax {
		return &InvalidPreferenceError{Field: "min_gap_hours", Reason: fmt.Sprintf("must be %d..%d", MinGapHoursMin, MinGapHoursMax)}
	}
	if _, err := ParseStyle(string(p.Style)); err != nil {
		return &InvalidPreferenceError{Field: "distribution_style", Reason: err.Error()}
	}
	for i, w := range p.Peaks {
		if !w.Start.wellFormed() || !w.End.wellFormed() || w.Start.Minutes() >= w.End.Minutes() {
			return &InvalidPreferenceError{Field: fmt.Sprintf("peak[%d]", i), Reason: "start must be before end"}
		}
	}
	return nil
}
