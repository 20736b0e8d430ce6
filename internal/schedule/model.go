package schedule

import (
	"math"
	"time"

	"motivator/internal/domain"
)

// Model turns a user's preference into a per-tick send probability.
//
// Ticks fall on local minutes congruent to TickOffset modulo the interval;
// the scheduler aligns them to its own midnight, so a user whose UTC offset
// differs from the scheduler's by a non-multiple of the interval sees them
// shifted. With N ticks inside the active window
// and base rate r = F*M/N, the expected number of positive draws per day is F*M
// for every style. peak_focused splits that expectation so PeakShare of it
// falls on ticks inside peak windows.
type Model struct {
	TickInterval time.Duration
	TickOffset   time.Duration
	PeakShare    float64
}

// TickOffsetFor is the tick phase in the user's local day, given ticks aligned
// to midnight in sched.
func TickOffsetFor(at time.Time, user, sched *time.Location) time.Duration {
	_, uoff := at.In(user).Zone()
	_, soff := at.In(sched).Zone()
	return time.Duration(uoff-soff) * time.Second
}

func (m Model) interval() time.Duration {
	if m.TickInterval < time.Minute {
		return time.Hour
	}
	return m.TickInterval
}

func (m Model) grid() (step, phase int) {
	step = int(m.interval() / time.Minute)
	phase = int(m.TickOffset/time.Minute) % step
	if phase < 0 {
		phase += step
	}
	return step, phase
}

// firstTick is the first tick minute at or after minute.
func (m Model) firstTick(minute int) int {
	step, phase := m.grid()
	return phase + ceilDiv(minute-phase, step)*step
}

// TicksIn counts tick instants inside w.
func (m Model) TicksIn(w domain.Window) int {
	step, _ := m.grid()
	first, end := m.firstTick(w.Start.Minutes()), w.End.Minutes()
	if first >= end {
		return 0
	}
	return (end-1-first)/step + 1
}

// PeakTicks counts ticks inside both the active window and any peak window.
func (m Model) PeakTicks(p domain.TimingPreference) int {
	step, _ := m.grid()
	n := 0
	for t := m.firstTick(p.Active.Start.Minutes()); t < p.Active.End.Minutes(); t += step {
		if p.InPeak(t) {
			n++
		}
	}
	return n
}

// PeakWeights returns the multipliers applied to r on peak and off-peak ticks.
// Without any peak tick, or without any off-peak tick, both are 1.
func (m Model) PeakWeights(p domain.TimingPreference) (peak, off float64) {
	n := m.TicksIn(p.Active)
	pk := m.PeakTicks(p)
	if n == 0 || pk == 0 || pk == n {
		return 1, 1
	}
	share := m.PeakShare
	if share <= 0 || share >= 1 {
		share = 0.6
	}
	peak = share * float64(n) / float64(pk)
	off = (1 - share) * float64(n) / float64(n-pk)
	return peak, off
}

// Probability is the send probability for the tick at local time. It is 0
// outside the active window and always within [0, 1].
func (m Model) Probability(local time.Time, p domain.TimingPreference, frequency int, boost float64) float64 {
	mod := domain.MinuteOfDay(local)
	if !p.Active.Contains(mod) {
		return 0
	}
	n := m.TicksIn(p.Active)
	if n == 0 {
		return 0
	}
	if boost <= 0 {
		boost = 1
	}
	r := clamp01(float64(domain.ClampFrequency(frequency)) * boost / float64(n))

	switch p.Style {
	case domain.StylePeakFocused:
		peak, off := m.PeakWeights(p)
		if p.InPeak(mod) {
			return clamp01(r * peak)
		}
		return clamp01(r * off)
	default:
		// even_spacing and random draw with a flat rate across the window.
		return r
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
