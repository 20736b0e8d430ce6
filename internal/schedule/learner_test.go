package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"motivator/internal/domain"
	"motivator/pkg/logx"
)

func engaged(userID int64, day, hour int, score float64) domain.SendRecord {
	sent := tm(day, hour, 0)
	return domain.SendRecord{
		UserID:      userID,
		Kind:        domain.KindScheduled,
		ScheduledAt: sent,
		SentAt:      &sent,
		Engagement:  &score,
	}
}

func repeat(userID int64, hour int, score float64, n int) []domain.SendRecord {
	out := make([]domain.SendRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, engaged(userID, 1+i, hour, score))
	}
	return out
}

func mustWindow(t *testing.T, s string) domain.Window {
	t.Helper()
	w, err := domain.ParseWindow(s)
	if err != nil {
		t.Fatalf("%s: %v", s, err)
	}
	return w
}

func TestRankHours(t *testing.T) {
	var h []domain.SendRecord
	h = append(h, repeat(1, 9, 1, 2)...)
	h = append(h, repeat(1, 14, 0.7, 3)...)
	h = append(h, repeat(1, 19, 1, 1)...)
	h = append(h, domain.SendRecord{UserID: 1, Kind: domain.KindScheduled}) // no engagement

	got := RankHours(h, time.UTC)
	want := []int{9, 19, 14}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i].Hour != want[i] {
			t.Fatalf("rank %d: hour %d want %d (%+v)", i, got[i].Hour, want[i], got)
		}
	}
}

func TestAdjustInsufficientData(t *testing.T) {
	p := domain.DefaultTimingPreference(1)
	out, changed, err := DefaultLearnerConfig().Adjust(p, repeat(1, 11, 1, 9), time.UTC)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err=%v want ErrInsufficientData", err)
	}
	if changed || out != p {
		t.Fatalf("preference must be unchanged")
	}
}

func TestAdjustShiftsTowardBestHours(t *testing.T) {
	p := domain.DefaultTimingPreference(1)
	var h []domain.SendRecord
	h = append(h, repeat(1, 11, 1, 5)...)
	h = append(h, repeat(1, 16, 1, 5)...)
	h = append(h, repeat(1, 20, 0.7, 5)...)

	out, changed, err := DefaultLearnerConfig().Adjust(p, h, time.UTC)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if !changed {
		t.Fatalf("expected change")
	}
	want := [3]domain.Window{mustWindow(t, "09:00-11:00"), mustWindow(t, "15:00-17:00"), mustWindow(t, "19:00-21:00")}
	if out.Peaks != want {
		t.Fatalf("peaks=%v want %v", out.Peaks, want)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("adjusted preference invalid: %v", err)
	}

	// The morning peak needs one more bounded step to reach 10:00-12:00,
	// after which the same data changes nothing.
	second, changed, err := DefaultLearnerConfig().Adjust(out, h, time.UTC)
	if err != nil || !changed {
		t.Fatalf("second pass changed=%v err=%v", changed, err)
	}
	want[0] = mustWindow(t, "10:00-12:00")
	if second.Peaks != want {
		t.Fatalf("second pass peaks=%v want %v", second.Peaks, want)
	}
	third, changed, err := DefaultLearnerConfig().Adjust(second, h, time.UTC)
	if err != nil || changed || third.Peaks != second.Peaks {
		t.Fatalf("third pass changed=%v err=%v peaks=%v", changed, err, third.Peaks)
	}
}

func TestAdjustBounds(t *testing.T) {
	cfg := DefaultLearnerConfig()

	t.Run("stays inside active window", func(t *testing.T) {
		p := domain.DefaultTimingPreference(1)
		p.Active = mustWindow(t, "09:00-22:00")
		p.Peaks[0] = mustWindow(t, "09:00-11:00")
		out, changed, err := cfg.Adjust(p, repeat(1, 8, 1, 10), time.UTC)
		if err != nil {
			t.Fatalf("Adjust: %v", err)
		}
		if changed {
			t.Fatalf("peaks moved outside active window: %v", out.Peaks)
		}
	})

	t.Run("minimum width", func(t *testing.T) {
		p := domain.DefaultTimingPreference(1)
		p.Peaks[0] = mustWindow(t, "09:00-09:30")
		out, _, err := cfg.Adjust(p, repeat(1, 9, 1, 10), time.UTC)
		if err != nil {
			t.Fatalf("Adjust: %v", err)
		}
		if got := out.Peaks[0]; got != mustWindow(t, "09:00-10:00") {
			t.Fatalf("morning=%v want 09:00-10:00", got)
		}
	})

	t.Run("bounded shift", func(t *testing.T) {
		p := domain.DefaultTimingPreference(1)
		out, _, err := cfg.Adjust(p, repeat(1, 12, 1, 10), time.UTC)
		if err != nil {
			t.Fatalf("Adjust: %v", err)
		}
		for i := range out.Peaks {
			ds := abs(out.Peaks[i].Start.Minutes() - p.Peaks[i].Start.Minutes())
			de := abs(out.Peaks[i].End.Minutes() - p.Peaks[i].End.Minutes())
			if ds > 60 || de > 60 {
				t.Fatalf("peak %d moved too far: %v -> %v", i, p.Peaks[i], out.Peaks[i])
			}
		}
	})
}

func TestLearnerRun(t *testing.T) {
	st := newMemStore()
	st.addUser(1, 2, true)
	st.addUser(2, 2, true)
	st.addUser(3, 2, true)
	st.addUser(4, 2, true)

	broken := domain.DefaultTimingPreference(4)
	broken.MinGapHours = 9
	st.setPref(broken)

	off := domain.DefaultTimingPreference(2)
	off.AutoAdjust = false
	st.setPref(off)

	st.records = append(st.records, repeat(1, 11, 1, 10)...)
	st.records = append(st.records, repeat(2, 11, 1, 10)...)
	st.records = append(st.records, repeat(3, 11, 1, 4)...)
	st.records = append(st.records, repeat(4, 11, 1, 10)...)

	l := NewLearner(st, logx.Nop(), nil, DefaultLearnerConfig(), time.UTC)
	l.now = func() time.Time { return tm(20, 0, 0) }

	rep, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Users != 4 || rep.Adjusted != 1 || rep.Skipped != 3 || rep.Failed != 0 {
		t.Fatalf("report=%+v", rep)
	}
	if got := st.prefs[1].Peaks[0]; got != mustWindow(t, "09:00-11:00") {
		t.Fatalf("user 1 morning=%v", got)
	}
	if got := st.prefs[2].Peaks; got != off.Peaks {
		t.Fatalf("auto-adjust off must not change peaks: %v", got)
	}

	if st.prefs[4] != broken {
		t.Fatalf("invalid preference must be left alone")
	}

	if rep, _ := l.Run(context.Background()); rep.Adjusted != 1 {
		t.Fatalf("second run adjusted=%d", rep.Adjusted)
	}
	if got := st.prefs[1].Peaks[0]; got != mustWindow(t, "10:00-12:00") {
		t.Fatalf("user 1 morning after second run=%v", got)
	}

	saves := st.saves
	if rep, _ := l.Run(context.Background()); rep.Adjusted != 0 {
		t.Fatalf("third run adjusted=%d", rep.Adjusted)
	}
	if st.saves != saves {
		t.Fatalf("unchanged preferences must not be saved")
	}
}

func TestLearnerRunNeverOverlaps(t *testing.T) {
	l := NewLearner(newMemStore(), logx.Nop(), nil, DefaultLearnerConfig(), time.UTC)
	l.running.Lock()
	defer l.running.Unlock()
	if _, err := l.Run(context.Background()); !errors.Is(err, ErrLearnerBusy) {
		t.Fatalf("err=%v want ErrLearnerBusy", err)
	}
}
