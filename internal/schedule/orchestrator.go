package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"motivator/internal/domain"
	"motivator/internal/eventbus"
	"motivator/pkg/logx"
)

var ErrTickInProgress = errors.New("tick already in progress")

type Options struct {
	Params  Params
	Log     logx.Logger
	Bus     eventbus.Bus // optional
	Sampler Sampler      // optional; time-seeded PCG when nil
	Now     func() time.Time
	NewID   func() string
}

// Orchestrator runs ticks. Ticks never overlap; a tick that starts while
// another is running fails with ErrTickInProgress.
type Orchestrator struct {
	store    Store
	content  ContentProvider
	msgr     Messenger
	resolver *Resolver
	log      logx.Logger
	bus      eventbus.Bus
	rnd      Sampler
	now      func() time.Time
	newID    func() string

	params atomic.Pointer[Params]
	last   atomic.Pointer[TickReport]

	running sync.Mutex
}

func NewOrchestrator(store Store, content ContentProvider, msgr Messenger, opt Options) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		content:  content,
		msgr:     msgr,
		log:      opt.Log.With(logx.String("comp", "schedule")),
		bus:      opt.Bus,
		rnd:      opt.Sampler,
		now:      opt.Now,
		newID:    opt.NewID,
	}
	if o.rnd == nil {
		o.rnd = newTimeSampler()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	o.resolver = NewResolver(store, o.log)
	o.Apply(opt.Params)
	return o
}

// Apply swaps tick parameters; the next tick picks them up.
func (o *Orchestrator) Apply(p Params) {
	p = p.normalized()
	o.params.Store(&p)
}

func (o *Orchestrator) Params() Params { return *o.params.Load() }

// LastTick returns the most recent completed tick report, or nil.
func (o *Orchestrator) LastTick() *TickReport { return o.last.Load() }

// RunTick evaluates every active user for the tick at `at`. Cancelling ctx stops
// the tick before the next user; a user already being evaluated is finished so
// that any dispatch is recorded.
func (o *Orchestrator) RunTick(ctx context.Context, at time.Time) (*TickReport, error) {
	if !o.running.TryLock() {
		return nil, ErrTickInProgress
	}
	defer o.running.Unlock()

	p := o.Params()
	started := o.now()
	rep := &TickReport{ID: o.newID(), At: at}
	log := o.log.With(logx.String("tick", rep.ID))

	if err := o.store.Ping(ctx); err != nil {
		log.Error("tick aborted", logx.Err(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	ids, err := o.store.ListActiveUsers(ctx)
	if err != nil {
		log.Error("tick aborted", logx.Err(err))
		return nil, fmt.Errorf("%w: list users: %v", domain.ErrStoreUnavailable, err)
	}

	var (
		mu          sync.Mutex
		g           errgroup.Group
		interrupted atomic.Bool
		bg          = context.WithoutCancel(ctx)
		out         = make([]UserOutcome, 0, len(ids))
	)
	g.SetLimit(p.Workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				interrupted.Store(true)
				return nil
			}
			uo := o.evaluate(bg, log, id, at, p)
			mu.Lock()
			out = append(out, uo)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if interrupted.Load() {
		rep.Interrupted = true
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	for _, uo := range out {
		rep.add(uo)
	}
	rep.Took = o.now().Sub(started)
	o.last.Store(rep)

	log.Info("tick done",
		logx.Time("at", at),
		logx.Int("users", rep.Users),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", rep.Failed),
		logx.Int("vetoed", rep.Vetoed),
		logx.Int("reminders", rep.Reminders),
		logx.Bool("interrupted", rep.Interrupted),
		logx.Duration("took", rep.Took),
	)
	if o.bus != nil {
		o.bus.Publish(eventbus.Event{Type: eventbus.TypeTickCompleted, Data: *rep})
	}
	return rep, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, log logx.Logger, userID int64, at time.Time, p Params) (out UserOutcome) {
	out.UserID = userID
	out.Decision = domain.Decision{UserID: userID, Reason: domain.ReasonPaused, Boost: 1}
	log = log.With(logx.Int64("user", userID))

	defer func() {
		if r := recover(); r != nil {
			out.Decision.Send = false
			out.Err = fmt.Sprintf("panic: %v", r)
			log.Error("evaluate panicked", logx.Any("panic", r))
		}
	}()

	u, err := o.store.GetUser(ctx, userID)
	if err != nil {
		out.Err = err.Error()
		log.Warn("load user failed", logx.Err(err))
		return out
	}
	if !u.Active {
		return out
	}

	// The reminder needs the user and today's moods; every later failure
	// still leaves it a chance.
	local := at.In(u.Location(p.Location))
	moods, err := o.store.GetRecentMoodEntries(ctx, userID, at.Add(-MoodLookback))
	if err != nil {
		out.Err = err.Error()
		log.Warn("load mood entries failed", logx.Err(err))
		return out
	}

	if pref, err := o.resolver.Resolve(ctx, userID); err != nil {
		out.Err = err.Error()
		log.Warn("resolve preference failed", logx.Err(err))
	} else {
		o.decide(ctx, log, &out, u, pref, moods, local, at, p)
	}

	if p.Reminders {
		out.Reminder = o.maybeRemind(ctx, log, u, moods, local, at, p)
	}
	return out
}

func (o *Orchestrator) decide(ctx context.Context, log logx.Logger, out *UserOutcome, u domain.User, pref domain.TimingPreference, moods []domain.MoodEntry, local, at time.Time, p Params) {
	boost := MoodBoost(moods, at, pref.MoodBoost)
	model := Model{
		TickInterval: p.TickInterval,
		TickOffset:   TickOffsetFor(at, local.Location(), p.Location),
		PeakShare:    p.PeakShare,
	}
	prob := model.Probability(local, pref, u.Frequency, boost)

	d := &out.Decision
	d.Boost = boost
	d.Probability = prob

	var err error
	switch {
	case !pref.Active.Contains(domain.MinuteOfDay(local)):
		d.Reason = domain.ReasonOutsideWindow
	case o.rnd.Float64() >= prob:
		d.Reason = domain.ReasonDrawMiss
	default:
		d.Reason, err = o.guard(ctx, u, pref, local, at, p)
		if err != nil {
			out.Err = err.Error()
			log.Warn("guard lookup failed", logx.Err(err))
			return
		}
	}

	if d.Reason != domain.ReasonSend {
		log.Trace("no send", logx.String("reason", string(d.Reason)), logx.Float64("p", prob))
		return
	}
	d.Send = true
	d.CategoryHint = CategoryFor(Latest(moods), o.rnd)
	if o.bus != nil {
		o.bus.Publish(eventbus.Event{Type: eventbus.TypeDecision, Data: *d})
	}
	delivered, err := o.dispatch(ctx, log, u, *d, at, p)
	out.Delivered = delivered
	if err != nil {
		out.Err = err.Error()
	}
}

func (o *Orchestrator) guard(ctx context.Context, u domain.User, pref domain.TimingPreference, local, at time.Time, p Params) (domain.Reason, error) {
	last, err := o.store.GetLastSendTime(ctx, u.ID)
	if err != nil {
		return "", err
	}
	count, err := o.store.GetTodaySendCount(ctx, u.ID, domain.StartOfDay(local))
	if err != nil {
		return "", err
	}
	return Guard{CeilingFactor: p.CeilingFactor}.Check(at, last, count, pref, u.Frequency), nil
}

// dispatch selects content, delivers it and records the attempt. Failed
// deliveries are recorded without SentAt.
func (o *Orchestrator) dispatch(ctx context.Context, log logx.Logger, u domain.User, d domain.Decision, at time.Time, p Params) (bool, error) {
	corr := o.newID()
	log = log.With(logx.String("corr", corr))

	var exclude []int64
	if p.DuplicateAvoidance > 0 {
		ids, err := o.store.RecentContentIDs(ctx, u.ID, p.DuplicateAvoidance)
		if err != nil {
			log.Warn("recent content lookup failed", logx.Err(err))
		}
		exclude = ids
	}
	item, err := o.content.Select(ctx, u.Language, d.CategoryHint, exclude)
	if err != nil {
		log.Warn("content selection failed", logx.String("category", d.CategoryHint.String()), logx.Err(err))
		return false, err
	}

	rec := domain.SendRecord{
		UserID:        u.ID,
		Kind:          domain.KindScheduled,
		ScheduledAt:   at,
		Category:      d.CategoryHint,
		ContentID:     item.ID,
		CorrelationID: corr,
	}

	dctx, cancel := context.WithTimeout(ctx, p.DispatchTimeout)
	receipt, sendErr := o.msgr.Deliver(dctx, u.ID, item)
	cancel()

	if sendErr != nil {
		sendErr = asDeliveryError(u.ID, sendErr)
		rec.Error = sendErr.Error()
		log.Warn("delivery failed", logx.Err(sendErr))
	} else {
		sent := receipt.At
		if sent.IsZero() {
			sent = o.now()
		}
		rec.SentAt = &sent
		rec.MessageID = receipt.MessageID
	}

	if _, err := o.store.AppendSendRecord(ctx, rec); err != nil {
		log.Error("record send failed", logx.Err(err))
		if sendErr == nil {
			return true, err
		}
	}
	if sendErr != nil {
		return false, sendErr
	}
	log.Info("message sent",
		logx.String("category", d.CategoryHint.String()),
		logx.Int64("content", item.ID),
		logx.Float64("p", d.Probability),
		logx.Float64("boost", d.Boost),
	)
	return true, nil
}

// maybeRemind sends the evening mood reminder once per local day to users who
// have not logged a mood today.
func (o *Orchestrator) maybeRemind(ctx context.Context, log logx.Logger, u domain.User, moods []domain.MoodEntry, local, at time.Time, p Params) string {
	start := p.ReminderAt.Minutes()
	step := int(p.TickInterval / time.Minute)
	mod := domain.MinuteOfDay(local)
	if mod < start || mod >= start+step {
		return ""
	}
	dayStart := domain.StartOfDay(local)
	for _, m := range moods {
		if !m.At.Before(dayStart) {
			return ""
		}
	}
	already, err := o.store.MoodReminderSentSince(ctx, u.ID, dayStart)
	if err != nil {
		log.Warn("reminder lookup failed", logx.Err(err))
		return ""
	}
	if already {
		return ""
	}

	text := o.content.MoodReminder(u.Language)
	rec := domain.SendRecord{
		UserID:        u.ID,
		Kind:          domain.KindMoodReminder,
		ScheduledAt:   at,
		CorrelationID: o.newID(),
	}
	dctx, cancel := context.WithTimeout(ctx, p.DispatchTimeout)
	receipt, err := o.msgr.Remind(dctx, u.ID, text)
	cancel()

	status := "sent"
	if err != nil {
		err = asDeliveryError(u.ID, err)
		rec.Error = err.Error()
		status = "failed"
		log.Warn("mood reminder failed", logx.Err(err))
	} else {
		sent := receipt.At
		if sent.IsZero() {
			sent = o.now()
		}
		rec.SentAt = &sent
		rec.MessageID = receipt.MessageID
	}
	if _, err := o.store.AppendSendRecord(ctx, rec); err != nil {
		log.Error("record reminder failed", logx.Err(err))
	}
	return status
}

func asDeliveryError(userID int64, err error) error {
	var de *domain.DeliveryError
	if errors.As(err, &de) {
		return err
	}
	return &domain.DeliveryError{
		UserID:  userID,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
