package schedule

import (
	"math"
	"testing"
	"time"

	"motivator/internal/domain"
)

func TestTicksIn(t *testing.T) {
	m := Model{TickInterval: time.Hour}
	cases := []struct {
		w    string
		want int
	}{
		{"08:00-22:00", 14},
		{"08:30-10:00", 1},
		{"00:00-24:00", 24},
		{"08:15-08:45", 0},
	}
	for _, tc := range cases {
		w, err := domain.ParseWindow(tc.w)
		if err != nil {
			t.Fatalf("%s: %v", tc.w, err)
		}
		if got := m.TicksIn(w); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.w, got, tc.want)
		}
	}

	half := Model{TickInterval: 30 * time.Minute}
	w, _ := domain.ParseWindow("08:00-10:00")
	if got := half.TicksIn(w); got != 4 {
		t.Fatalf("30m ticks: got %d want 4", got)
	}
}

func TestTicksInWithOffset(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+30*60)
	m := Model{TickInterval: time.Hour, TickOffset: TickOffsetFor(tm(1, 0, 0), kolkata, time.UTC)}
	if m.TickOffset != 5*time.Hour+30*time.Minute {
		t.Fatalf("offset=%v", m.TickOffset)
	}
	cases := []struct {
		w    string
		want int
	}{
		{"08:00-22:00", 14}, // 08:30 .. 21:30
		{"08:45-09:15", 0},
		{"08:15-08:45", 1},
		{"00:00-24:00", 24},
	}
	for _, tc := range cases {
		w, err := domain.ParseWindow(tc.w)
		if err != nil {
			t.Fatalf("%s: %v", tc.w, err)
		}
		if got := m.TicksIn(w); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.w, got, tc.want)
		}
	}

	// 08:30 09:30, 14:30 15:30, 18:30 19:30
	p := domain.DefaultTimingPreference(1)
	want := 6
	if got := m.PeakTicks(p); got != want {
		t.Fatalf("peak ticks=%d want %d", got, want)
	}

	m.PeakShare = 0.6
	var sum float64
	for h := 0; h < 24; h++ {
		sum += m.Probability(tm(1, h, 30), p, 2, 1)
	}
	if math.Abs(sum-2) > 1e-9 {
		t.Fatalf("expected sends=%v want 2", sum)
	}
}

func TestProbabilityZeroOutsideWindow(t *testing.T) {
	m := Model{TickInterval: time.Hour, PeakShare: 0.6}
	p := domain.DefaultTimingPreference(1)
	for _, style := range []domain.DistributionStyle{domain.StylePeakFocused, domain.StyleEvenSpacing, domain.StyleRandom} {
		p.Style = style
		for _, h := range []int{0, 5, 7, 22, 23} {
			if got := m.Probability(tm(1, h, 0), p, 5, 2); got != 0 {
				t.Fatalf("%s %02d:00: p=%v want 0", style, h, got)
			}
		}
	}
}

func TestProbabilityExpectedDailySends(t *testing.T) {
	m := Model{TickInterval: time.Hour, PeakShare: 0.6}
	for _, style := range []domain.DistributionStyle{domain.StylePeakFocused, domain.StyleEvenSpacing, domain.StyleRandom} {
		p := domain.DefaultTimingPreference(1)
		p.Style = style
		for _, boost := range []float64{1, 1.5, 2} {
			var sum, peak float64
			for h := 0; h < 24; h++ {
				v := m.Probability(tm(1, h, 0), p, 2, boost)
				if v < 0 || v > 1 {
					t.Fatalf("%s: p=%v out of range", style, v)
				}
				sum += v
				if p.InPeak(h * 60) {
					peak += v
				}
			}
			if math.Abs(sum-2*boost) > 1e-9 {
				t.Fatalf("%s boost=%v: expected sends %v want %v", style, boost, sum, 2*boost)
			}
			if style == domain.StylePeakFocused && math.Abs(peak/sum-0.6) > 1e-9 {
				t.Fatalf("peak share=%v want 0.6", peak/sum)
			}
		}
	}
}

func TestProbabilityClamped(t *testing.T) {
	m := Model{TickInterval: time.Hour, PeakShare: 0.6}
	p := domain.DefaultTimingPreference(1)
	p.Active, _ = domain.ParseWindow("09:00-11:00")
	p.Peaks[0], _ = domain.ParseWindow("09:00-10:00")
	if got := m.Probability(tm(1, 9, 0), p, 5, 2); got != 1 {
		t.Fatalf("p=%v want clamped to 1", got)
	}
}

func TestPeakWeightsDegenerate(t *testing.T) {
	m := Model{TickInterval: time.Hour, PeakShare: 0.6}
	p := domain.DefaultTimingPreference(1)

	// No peak tick inside the active window.
	p.Active, _ = domain.ParseWindow("11:00-13:00")
	if pk, off := m.PeakWeights(p); pk != 1 || off != 1 {
		t.Fatalf("no peaks: got %v/%v want 1/1", pk, off)
	}
	// Every tick is a peak tick.
	p.Active, _ = domain.ParseWindow("08:00-10:00")
	if pk, off := m.PeakWeights(p); pk != 1 || off != 1 {
		t.Fatalf("all peaks: got %v/%v want 1/1", pk, off)
	}
}

func TestPeakFocusedDrawsConvergeToShare(t *testing.T) {
	m := Model{TickInterval: time.Hour, PeakShare: 0.6}
	p := domain.DefaultTimingPreference(1)
	rnd := NewSampler(42)

	var peak, total int
	for day := 0; day < 10000; day++ {
		for h := 8; h < 22; h++ {
			if rnd.Float64() < m.Probability(tm(1, h, 0), p, 2, 1) {
				total++
				if p.InPeak(h * 60) {
					peak++
				}
			}
		}
	}
	share := float64(peak) / float64(total)
	if math.Abs(share-0.6) > 0.05 {
		t.Fatalf("peak share=%.3f want 0.60±0.05 (n=%d)", share, total)
	}
	if perDay := float64(total) / 10000; math.Abs(perDay-2) > 0.1 {
		t.Fatalf("sends/day=%.3f want ~2", perDay)
	}
}

func TestSamplerDeterministic(t *testing.T) {
	a, b := NewSampler(7), NewSampler(7)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}
