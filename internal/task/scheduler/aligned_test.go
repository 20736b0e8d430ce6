package scheduler

import (
	"testing"
	"time"
)

func TestAlignedEvery(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cases := []struct {
		name  string
		every time.Duration
		from  time.Time
		want  time.Time
	}{
		{"hourly mid-hour", time.Hour, time.Date(2025, 3, 3, 9, 17, 5, 0, time.UTC), time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)},
		{"hourly on boundary", time.Hour, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)},
		{"half hour", 30 * time.Minute, time.Date(2025, 3, 3, 9, 10, 0, 0, time.UTC), time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)},
		{"wraps to midnight", time.Hour, time.Date(2025, 3, 3, 23, 30, 0, 0, time.UTC), time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"uneven restarts at midnight", 7 * time.Hour, time.Date(2025, 3, 3, 22, 0, 0, 0, time.UTC), time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"local zone", time.Hour, time.Date(2025, 3, 3, 9, 40, 0, 0, berlin), time.Date(2025, 3, 3, 10, 0, 0, 0, berlin)},
	}
	for _, tc := range cases {
		got := AlignedEvery(tc.every).Next(tc.from)
		if !got.Equal(tc.want) {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}
