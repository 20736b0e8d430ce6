package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"motivator/internal/bot"
	"motivator/internal/config"
	"motivator/internal/content"
	"motivator/internal/eventbus"
	"motivator/internal/notifier"
	"motivator/internal/observability/httpdebug"
	rtsup "motivator/internal/runtime/supervisor"
	"motivator/internal/schedule"
	"motivator/internal/storage"
	"motivator/internal/task/scheduler"
	kit "motivator/internal/transport"
	tgadapter "motivator/internal/transport/telegram/adapter"
	"motivator/internal/transport/telegram/router"
	logx "motivator/pkg/logx"
)

const (
	jobTick    = "engine.tick"
	jobLearner = "learner.pass"

	learnerTimeout = 10 * time.Minute
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store *storage.SQLite

	adapter kit.Adapter
	router  *router.Router

	catalog *content.Holder
	orch    *schedule.Orchestrator
	learner *schedule.Learner
	sched   *scheduler.Service
	notif   *notifier.Service
	debug   *httpdebug.Service

	learnerOn atomic.Bool
	trigger   triggerConfig

	updates chan kit.Update
}

// New loads the config and wires every component. Nothing runs until Start.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// The Telegram log sink needs the adapter, and the adapter needs a
	// logger, so logging starts console-only and the sender is attached later.
	logSvc, root := logx.New(mapLogConfig(cfg), nil)
	log := root.With(logx.String("comp", "app"))

	pollTimeout, _ := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, defaultPollTimeout)
	ad, err := tgadapter.New(tgadapter.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, root.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}
	logSvc.SetSender(ad)

	sc, _ := mapStorageConfig(cfg)
	store, err := storage.Open(ctx, sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     eventbus.New(),
		store:   store,
		adapter: ad,
		updates: make(chan kit.Update, 256),
	}
	if err := a.wire(cfg, root); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(cfg *config.Config, root logx.Logger) error {
	cat, err := loadCatalog(cfg.Content.Path)
	if err != nil {
		return err
	}
	a.catalog = content.NewHolder(cat)

	ncfg, _ := mapNotifierConfig(cfg)
	a.notif = notifier.New(ncfg, a.adapter, root.With(logx.String("comp", "notifier")), a.bus)
	a.notif.OnRecipientGone(func(ctx context.Context, userID int64) {
		if err := a.store.SetUserActive(ctx, userID, false); err != nil {
			a.log.Warn("deactivate unreachable user failed", logx.Int64("user_id", userID), logx.Err(err))
			return
		}
		a.log.Info("user unreachable; deactivated", logx.Int64("user_id", userID))
	})

	params, _ := mapParams(cfg)
	a.orch = schedule.NewOrchestrator(a.store, a.catalog, a.notif, schedule.Options{
		Params: params,
		Log:    root,
		Bus:    a.bus,
		NewID:  func() string { return uuid.NewString()[:8] },
	})

	lc, learnerOn, _ := mapLearnerConfig(cfg)
	a.learner = schedule.NewLearner(a.store, root, a.bus, lc, params.Location)
	a.learnerOn.Store(learnerOn)

	a.trigger, _ = mapTriggerConfig(cfg)
	a.sched = scheduler.New(a.trigger.scheduler, root.With(logx.String("comp", "scheduler")), a.bus)
	if err := a.registerJobs(a.trigger); err != nil {
		return err
	}

	b := bot.New(bot.Deps{
		Store:              a.store,
		Content:            a.catalog,
		Messenger:          a.notif,
		Ticks:              a.orch,
		Log:                root.With(logx.String("comp", "bot")),
		Bus:                a.bus,
		DuplicateAvoidance: params.DuplicateAvoidance,
	})
	a.router = router.New(a.adapter, root.With(logx.String("comp", "router")), router.Options{
		Workers: cfg.Telegram.Workers,
		Unknown: b.Unknown,
	})
	a.router.SetOwners(cfg.Telegram.OwnerUserIDs)
	a.router.SetRegistry(b.Commands(), b.Callbacks())

	hc, _ := mapHTTPConfig(cfg)
	a.debug = httpdebug.New(hc, httpdebug.Sources{
		Store: a.store,
		Ticks: a.orch,
		Jobs:  a.jobsSnapshot,
	}, root.With(logx.String("comp", "http")))
	return nil
}

// jobsSnapshot backs /debug/jobs.
func (a *App) jobsSnapshot() any {
	tasks := map[string][]rtsup.TaskStatus{
		"app":    a.sup.Snapshot(),
		"router": a.router.Supervisor().Snapshot(),
	}
	if sp, ok := a.adapter.(interface{ Supervisor() *rtsup.Supervisor }); ok {
		tasks["telegram"] = sp.Supervisor().Snapshot()
	}
	return map[string]any{"scheduler": a.sched.Snapshot(), "tasks": tasks}
}

func loadCatalog(path string) (*content.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return content.Builtin()
	}
	cat, err := content.Load(path)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	return cat, nil
}

// registerJobs (re)installs the tick and learner triggers.
func (a *App) registerJobs(tc triggerConfig) error {
	if err := a.sched.AddAligned(jobTick, tc.tickEvery, tc.tickTimeout, a.runTick); err != nil {
		return fmt.Errorf("register %s: %w", jobTick, err)
	}
	if err := a.sched.Add(jobLearner, tc.learnerSchedule, learnerTimeout, a.runLearner); err != nil {
		return fmt.Errorf("register %s: %w", jobLearner, err)
	}
	return nil
}

func (a *App) runTick(ctx context.Context, at time.Time) error {
	_, err := a.orch.RunTick(ctx, at)
	return err
}

func (a *App) runLearner(ctx context.Context, _ time.Time) error {
	if !a.learnerOn.Load() {
		return nil
	}
	_, err := a.learner.Run(ctx)
	return err
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validate(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	} else {
		a.log.Warn("scheduler disabled; no scheduled messages will be sent")
	}
	if a.debug.Enabled() {
		a.debug.Start(a.sup.Context())
	}

	a.sup.Go("router.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		a.logEvents(c, events)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(c, last, next)
				last = next
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.startSystemd(a.sup)

	a.log.Info("app started",
		logx.Duration("tick_every", a.trigger.tickEvery),
		logx.Int("languages", len(a.catalog.Languages())),
	)
	return nil
}

func (a *App) logEvents(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch d := e.Data.(type) {
			case schedule.TickReport:
				if d.Errors > 0 || d.Interrupted {
					a.log.Warn("tick finished with errors",
						logx.String("tick", d.ID),
						logx.Int("errors", d.Errors),
						logx.Bool("interrupted", d.Interrupted),
					)
				}
			default:
				// Per-user decisions are frequent; keep them at debug.
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	}
}

// applyConfig fans a committed config out to the live components.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	changed, attrs := config.SummarizeChange(prev, next)
	if len(changed) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart := config.NeedsRestart(changed); len(restart) > 0 {
		a.log.Warn("config change needs a restart to take effect", logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLogConfig(next))
	a.router.SetOwners(next.Telegram.OwnerUserIDs)

	if p, err := mapParams(next); err != nil {
		a.log.Warn("invalid engine config; keeping previous", logx.Err(err))
	} else {
		a.orch.Apply(p)
	}
	if lc, on, err := mapLearnerConfig(next); err != nil {
		a.log.Warn("invalid learner config; keeping previous", logx.Err(err))
	} else {
		a.learner.Apply(lc)
		a.learnerOn.Store(on)
	}
	if nc, err := mapNotifierConfig(next); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(nc)
	}
	if prev.Content.Path != next.Content.Path {
		if cat, err := loadCatalog(next.Content.Path); err != nil {
			a.log.Warn("content reload failed; keeping previous catalog", logx.Err(err))
		} else {
			a.catalog.Swap(cat)
			a.log.Info("content catalog swapped", logx.Int("languages", len(cat.Languages())))
		}
	}
	a.applyTriggers(ctx, next)

	if hc, err := mapHTTPConfig(next); err != nil {
		a.log.Warn("invalid http config; keeping previous", logx.Err(err))
	} else {
		a.debug.Reconfigure(ctx, hc)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigReloaded, Data: changed})
}

func (a *App) applyTriggers(ctx context.Context, next *config.Config) {
	tc, err := mapTriggerConfig(next)
	if err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
		return
	}
	wasOn := a.sched.Enabled()
	a.sched.Apply(tc.scheduler)
	if tc.tickEvery != a.trigger.tickEvery || tc.tickTimeout != a.trigger.tickTimeout || tc.learnerSchedule != a.trigger.learnerSchedule {
		if err := a.registerJobs(tc); err != nil {
			a.log.Warn("re-register jobs failed", logx.Err(err))
			return
		}
	}
	a.trigger = tc

	switch {
	case wasOn && !tc.scheduler.Enabled:
		a.log.Info("scheduler disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	case !wasOn && tc.scheduler.Enabled:
		a.log.Info("scheduler enabled via config")
		a.sched.Start(ctx)
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.store.Close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	notifyStopping()

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		a.stopStep(ctx, name, max, fn)
	}

	// Triggers first so no tick starts while delivery is shutting down.
	step("scheduler", 5*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("http", time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}

// stopStep runs fn with an upper bound so one component can't stall the
// whole stop. The caller's deadline is never extended.
func (a *App) stopStep(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped: no time left", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
