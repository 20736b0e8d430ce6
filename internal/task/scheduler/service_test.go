package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"motivator/internal/eventbus"
	logx "motivator/pkg/logx"
)

func TestAddValidatesInput(t *testing.T) {
	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop(), nil)
	job := func(context.Context, time.Time) error { return nil }

	if err := s.Add("", "1h", 0, job); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := s.Add("x", "bogus", 0, job); err == nil {
		t.Fatalf("expected error for bad spec")
	}
	if err := s.Add("x", "61 * * * *", 0, job); err == nil {
		t.Fatalf("expected error for bad cron")
	}
	if err := s.Add("x", "1h", 0, nil); err == nil {
		t.Fatalf("expected error for nil job")
	}
	if err := s.AddAligned("x", 0, 0, job); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}

func TestAddUpsertsAndRemoves(t *testing.T) {
	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop(), nil)
	job := func(context.Context, time.Time) error { return nil }

	if err := s.Add("learner", "5 0 * * *", time.Minute, job); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("learner", "10 0 * * *", time.Minute, job); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.AddAligned("tick", time.Hour, 0, job); err != nil {
		t.Fatalf("AddAligned: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 2 || snap.Schedules[0].Spec != "10 0 * * *" || snap.Timezone != "UTC" {
		t.Fatalf("snapshot=%+v", snap)
	}
	if !s.Remove("learner") || s.Remove("learner") {
		t.Fatalf("remove should succeed exactly once")
	}
}

func TestRunRecordsOutcome(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop(), bus)
	s.now = func() time.Time { return time.Date(2025, 3, 3, 9, 0, 2, 500, time.UTC) }

	var got time.Time
	s.run(context.Background(), time.UTC, "tick", time.Second, func(ctx context.Context, at time.Time) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("job context has no deadline")
		}
		got = at
		return errors.New("store down")
	})

	if want := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("at=%s want %s", got, want)
	}
	if ri := s.runs["tick"]; ri == nil || ri.Err != "store down" {
		t.Fatalf("run info=%+v", ri)
	}
	select {
	case e := <-ch:
		if e.Type != eventbus.TypeJobFinished {
			t.Fatalf("event=%q", e.Type)
		}
	default:
		t.Fatalf("no job event")
	}
}

func TestStartFiresAndStopCancels(t *testing.T) {
	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop(), nil)
	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	if err := s.Add("probe", "@every 1s", 0, func(context.Context, time.Time) error {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s.Start(context.Background())
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)

	n := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	if runs.Load() != n {
		t.Fatalf("job fired after Stop")
	}
}
