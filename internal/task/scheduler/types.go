package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"motivator/internal/eventbus"
	logx "motivator/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Europe/Berlin"
}

// Job runs once per trigger. at is the trigger time truncated to the minute
// in the scheduler's timezone.
type Job func(ctx context.Context, at time.Time) error

type scheduleDef struct {
	name    string
	spec    string
	sched   cron.Schedule
	timeout time.Duration
	job     Job
	entryID cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// base is cancelled by Stop so running jobs observe shutdown.
	base   context.Context
	cancel context.CancelFunc

	runs   map[string]*RunInfo
	runsMu sync.Mutex

	now func() time.Time
}

// RunInfo is the most recent outcome of a job.
type RunInfo struct {
	Started time.Time
	Took    time.Duration
	Err     string
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
	Last    RunInfo
}

type Snapshot struct {
	Enabled   bool
	Timezone  string
	Schedules []ScheduleInfo
}
