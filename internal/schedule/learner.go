package schedule

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"motivator/internal/domain"
	"motivator/internal/eventbus"
	"motivator/pkg/logx"
)

var (
	ErrInsufficientData = errors.New("insufficient engagement data")
	ErrLearnerBusy      = errors.New("learning pass already running")
)

// LearnerConfig bounds how far a single pass may move peak windows.
type LearnerConfig struct {
	Lookback     time.Duration
	MinEngaged   int
	MaxShift     time.Duration
	MinPeakWidth time.Duration
	TopHours     int
}

func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		Lookback:     30 * 24 * time.Hour,
		MinEngaged:   10,
		MaxShift:     time.Hour,
		MinPeakWidth: time.Hour,
		TopHours:     3,
	}
}

func (c LearnerConfig) normalized() LearnerConfig {
	def := DefaultLearnerConfig()
	if c.Lookback <= 0 {
		c.Lookback = def.Lookback
	}
	if c.MinEngaged <= 0 {
		c.MinEngaged = def.MinEngaged
	}
	if c.MaxShift <= 0 {
		c.MaxShift = def.MaxShift
	}
	if c.MinPeakWidth <= 0 {
		c.MinPeakWidth = def.MinPeakWidth
	}
	if c.TopHours <= 0 || c.TopHours > 3 {
		c.TopHours = def.TopHours
	}
	return c
}

// HourScore is the mean engagement observed for sends in one local hour.
type HourScore struct {
	Hour    int
	Mean    float64
	Samples int
}

// RankHours orders hours by mean engagement, then sample count, then hour.
// Records without engagement or without a delivery time are ignored.
func RankHours(history []domain.SendRecord, loc *time.Location) []HourScore {
	if loc == nil {
		loc = time.UTC
	}
	var sum [24]float64
	var cnt [24]int
	for _, r := range history {
		if r.Kind != domain.KindScheduled || r.SentAt == nil || r.Engagement == nil {
			continue
		}
		h := r.SentAt.In(loc).Hour()
		sum[h] += *r.Engagement
		cnt[h]++
	}
	var out []HourScore
	for h := 0; h < 24; h++ {
		if cnt[h] == 0 {
			continue
		}
		out = append(out, HourScore{Hour: h, Mean: sum[h] / float64(cnt[h]), Samples: cnt[h]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		if out[i].Samples != out[j].Samples {
			return out[i].Samples > out[j].Samples
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

func engagedCount(history []domain.SendRecord) int {
	n := 0
	for _, r := range history {
		if r.Kind == domain.KindScheduled && r.SentAt != nil && r.Engagement != nil {
			n++
		}
	}
	return n
}

// Adjust moves each peak window toward one of the best-engaged hours. Each top
// hour claims the nearest unclaimed window. Boundaries move at most MaxShift,
// widths never drop below MinPeakWidth, and windows stay inside the active
// window; a move that cannot satisfy all three leaves that window unchanged.
// The returned bool reports whether anything changed.
func (c LearnerConfig) Adjust(p domain.TimingPreference, history []domain.SendRecord, loc *time.Location) (domain.TimingPreference, bool, error) {
	c = c.normalized()
	if engagedCount(history) < c.MinEngaged {
		return p, false, ErrInsufficientData
	}
	ranked := RankHours(history, loc)
	if len(ranked) > c.TopHours {
		ranked = ranked[:c.TopHours]
	}

	out := p
	var claimed [3]bool
	for _, hs := range ranked {
		target := hs.Hour*60 + 30
		best := -1
		bestDist := 0
		for i, w := range p.Peaks {
			if claimed[i] {
				continue
			}
			center := (w.Start.Minutes() + w.End.Minutes()) / 2
			d := abs(center - target)
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			break
		}
		claimed[best] = true
		if w, ok := c.shift(p.Peaks[best], p.Active, hs.Hour); ok {
			out.Peaks[best] = w
		}
	}

	return out, out.Peaks != p.Peaks, nil
}

func (c LearnerConfig) shift(w, active domain.Window, hour int) (domain.Window, bool) {
	width := max(w.End.Minutes()-w.Start.Minutes(), int(c.MinPeakWidth/time.Minute))
	aStart, aEnd := active.Start.Minutes(), active.End.Minutes()
	if width > aEnd-aStart {
		return w, false
	}
	// Center on the hour, then snap the start down to a whole hour.
	desired := hour*60 + 30 - width/2
	if desired < 0 {
		desired = 0
	}
	desired = desired / 60 * 60
	maxShift := int(c.MaxShift / time.Minute)
	delta := desired - w.Start.Minutes()
	delta = max(-maxShift, min(maxShift, delta))

	start := w.Start.Minutes() + delta
	end := start + width
	if start < aStart {
		start, end = aStart, aStart+width
	}
	if end > aEnd {
		start, end = aEnd-width, aEnd
	}
	if abs(start-w.Start.Minutes()) > maxShift || abs(end-w.End.Minutes()) > maxShift {
		return w, false
	}
	return domain.Window{Start: domain.ClockFromMinutes(start), End: domain.ClockFromMinutes(end)}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// LearnReport summarizes one learning pass.
type LearnReport struct {
	Users    int
	Adjusted int
	Skipped  int
	Failed   int
}

// Learner periodically rewrites peak windows for users with auto-adjust on.
// Passes never overlap.
type Learner struct {
	store    Store
	resolver *Resolver
	log      logx.Logger
	bus      eventbus.Bus
	cfg      atomic.Pointer[LearnerConfig]
	fallback *time.Location
	now      func() time.Time

	running sync.Mutex
}

func NewLearner(store Store, log logx.Logger, bus eventbus.Bus, cfg LearnerConfig, fallback *time.Location) *Learner {
	if fallback == nil {
		fallback = time.UTC
	}
	l := &Learner{
		store:    store,
		log:      log.With(logx.String("comp", "learner")),
		bus:      bus,
		fallback: fallback,
		now:      time.Now,
	}
	l.resolver = NewResolver(store, l.log)
	l.Apply(cfg)
	return l
}

// Apply swaps the tuning used by subsequent passes.
func (l *Learner) Apply(cfg LearnerConfig) {
	c := cfg.normalized()
	l.cfg.Store(&c)
}

// Run executes one pass over all active users.
func (l *Learner) Run(ctx context.Context) (LearnReport, error) {
	if !l.running.TryLock() {
		return LearnReport{}, ErrLearnerBusy
	}
	defer l.running.Unlock()

	var rep LearnReport
	ids, err := l.store.ListActiveUsers(ctx)
	if err != nil {
		return rep, err
	}
	now := l.now()
	for _, id := range ids {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Users++
		changed, err := l.adjustUser(ctx, id, now)
		switch {
		case errors.Is(err, ErrInsufficientData), errors.As(err, new(*domain.InvalidPreferenceError)):
			rep.Skipped++
		case err != nil:
			rep.Failed++
			l.log.Warn("learner: adjust failed", logx.Int64("user", id), logx.Err(err))
		case changed:
			rep.Adjusted++
		default:
			rep.Skipped++
		}
	}
	l.log.Info("learner: pass done",
		logx.Int("users", rep.Users),
		logx.Int("adjusted", rep.Adjusted),
		logx.Int("skipped", rep.Skipped),
		logx.Int("failed", rep.Failed),
	)
	if l.bus != nil {
		l.bus.Publish(eventbus.Event{Type: eventbus.TypeLearnerPass, Data: rep})
	}
	return rep, nil
}

func (l *Learner) adjustUser(ctx context.Context, id int64, now time.Time) (bool, error) {
	pref, err := l.resolver.Load(ctx, id)
	if err != nil {
		return false, err
	}
	if !pref.AutoAdjust {
		return false, nil
	}
	u, err := l.store.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	cfg := *l.cfg.Load()
	history, err := l.store.GetSendHistory(ctx, id, now.Add(-cfg.Lookback))
	if err != nil {
		return false, err
	}
	next, changed, err := cfg.Adjust(pref, history, u.Location(l.fallback))
	if err != nil || !changed {
		return false, err
	}
	next.UpdatedAt = now
	if err := l.store.SaveTimingPreference(ctx, next); err != nil {
		return false, err
	}
	l.log.Info("learner: peaks adjusted",
		logx.Int64("user", id),
		logx.String("morning", next.Peaks[domain.PeakMorning].String()),
		logx.String("afternoon", next.Peaks[domain.PeakAfternoon].String()),
		logx.String("evening", next.Peaks[domain.PeakEvening].String()),
	)
	return true, nil
}
