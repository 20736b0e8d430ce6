package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"motivator/internal/config"
	"motivator/internal/domain"
	"motivator/internal/notifier"
	"motivator/internal/observability/httpdebug"
	"motivator/internal/schedule"
	"motivator/internal/storage"
	"motivator/internal/task/scheduler"
	logx "motivator/pkg/logx"
)

const (
	defaultLearnerSchedule = "5 0 * * *"
	defaultPollTimeout     = 10 * time.Second
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		return storage.Config{}, errors.New("storage.path is required")
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Path: path, BusyTimeout: busy}, nil
}

func loadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}

// triggerConfig is the cadence part of the scheduler section.
type triggerConfig struct {
	scheduler       scheduler.Config
	tickEvery       time.Duration
	tickTimeout     time.Duration
	learnerSchedule string
}

func mapTriggerConfig(cfg *config.Config) (triggerConfig, error) {
	sc := cfg.Scheduler
	if _, err := loadLocation(sc.Timezone); err != nil {
		return triggerConfig{}, err
	}
	every, err := config.ParseDurationOrDefault("scheduler.tick_interval", sc.TickInterval, schedule.DefaultParams().TickInterval)
	if err != nil {
		return triggerConfig{}, err
	}
	if every < time.Minute {
		return triggerConfig{}, fmt.Errorf("scheduler.tick_interval must be >= 1m")
	}
	// A tick must finish before the next one would fire.
	timeout, err := config.ParseDurationOrDefault("scheduler.tick_timeout", sc.TickTimeout, every-time.Second)
	if err != nil {
		return triggerConfig{}, err
	}
	learner := strings.TrimSpace(sc.LearnerSchedule)
	if learner == "" {
		learner = defaultLearnerSchedule
	}
	if _, err := scheduler.ParseSchedule(learner); err != nil {
		return triggerConfig{}, fmt.Errorf("scheduler.learner_schedule: %w", err)
	}
	return triggerConfig{
		scheduler:       scheduler.Config{Enabled: sc.Enabled, Timezone: strings.TrimSpace(sc.Timezone)},
		tickEvery:       every,
		tickTimeout:     timeout,
		learnerSchedule: learner,
	}, nil
}

func mapParams(cfg *config.Config) (schedule.Params, error) {
	p := schedule.DefaultParams()
	ec := cfg.Engine

	loc, err := loadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return p, err
	}
	p.Location = loc

	if p.TickInterval, err = config.ParseDurationOrDefault("scheduler.tick_interval", cfg.Scheduler.TickInterval, p.TickInterval); err != nil {
		return p, err
	}
	if ec.PeakShare != 0 {
		if ec.PeakShare <= 0 || ec.PeakShare >= 1 {
			return p, fmt.Errorf("engine.peak_share must be in (0,1)")
		}
		p.PeakShare = ec.PeakShare
	}
	if ec.CeilingFactor != 0 {
		if ec.CeilingFactor < 1 {
			return p, fmt.Errorf("engine.ceiling_factor must be >= 1")
		}
		p.CeilingFactor = ec.CeilingFactor
	}
	if ec.Reminders != nil {
		p.Reminders = *ec.Reminders
	}
	if s := strings.TrimSpace(ec.ReminderAt); s != "" {
		at, err := domain.ParseClock(s)
		if err != nil || at.Minutes() >= 24*60 {
			return p, fmt.Errorf("engine.reminder_at: invalid %q", s)
		}
		p.ReminderAt = at
	}
	if p.DispatchTimeout, err = config.ParseDurationOrDefault("engine.dispatch_timeout", ec.DispatchTimeout, p.DispatchTimeout); err != nil {
		return p, err
	}
	if ec.Workers < 0 || ec.DuplicateAvoidance < 0 {
		return p, fmt.Errorf("engine.workers and engine.duplicate_avoidance must be >= 0")
	}
	if ec.Workers > 0 {
		p.Workers = ec.Workers
	}
	if ec.DuplicateAvoidance > 0 {
		p.DuplicateAvoidance = ec.DuplicateAvoidance
	}
	return p, nil
}

func mapLearnerConfig(cfg *config.Config) (schedule.LearnerConfig, bool, error) {
	lc := schedule.DefaultLearnerConfig()
	src := cfg.Learner
	enabled := src.Enabled == nil || *src.Enabled

	var err error
	if lc.Lookback, err = config.ParseDurationOrDefault("learner.lookback", src.Lookback, lc.Lookback); err != nil {
		return lc, false, err
	}
	if lc.MaxShift, err = config.ParseDurationOrDefault("learner.max_shift", src.MaxShift, lc.MaxShift); err != nil {
		return lc, false, err
	}
	if lc.MinPeakWidth, err = config.ParseDurationOrDefault("learner.min_peak_width", src.MinPeakWidth, lc.MinPeakWidth); err != nil {
		return lc, false, err
	}
	if src.MinEngaged < 0 || src.TopHours < 0 {
		return lc, false, fmt.Errorf("learner.min_engaged and learner.top_hours must be >= 0")
	}
	if src.MinEngaged > 0 {
		lc.MinEngaged = src.MinEngaged
	}
	if src.TopHours > 0 {
		lc.TopHours = src.TopHours
	}
	return lc, enabled, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	nc := notifier.DefaultConfig()
	src := cfg.Notifier
	if src.RatePerSec < 0 {
		return nc, fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}
	if src.RatePerSec > 0 {
		nc.RatePerSec = src.RatePerSec
	}
	switch pm := strings.TrimSpace(src.ParseMode); strings.ToLower(pm) {
	case "":
	case "none":
		nc.ParseMode = ""
	case "markdown":
		nc.ParseMode = "Markdown"
	case "markdownv2":
		nc.ParseMode = "MarkdownV2"
	case "html":
		nc.ParseMode = "HTML"
	default:
		return nc, fmt.Errorf("notifier.parse_mode: unknown %q", pm)
	}
	if src.FeedbackButtons != nil {
		nc.FeedbackButtons = *src.FeedbackButtons
	}
	return nc, nil
}

func mapHTTPConfig(cfg *config.Config) (httpdebug.Config, error) {
	hc := cfg.HTTP
	out := httpdebug.Config{
		Enabled:              hc.Enabled,
		Addr:                 strings.TrimSpace(hc.Addr),
		Token:                strings.TrimSpace(hc.Token),
		AllowInsecure:        hc.AllowInsecure,
		Pprof:                hc.Pprof,
		MutexProfileFraction: hc.MutexProfileFraction,
		BlockProfileRate:     hc.BlockProfileRate,
	}
	var err error
	if out.ReadTimeout, err = config.ParseDurationOrDefault("http.read_timeout", hc.ReadTimeout, 10*time.Second); err != nil {
		return out, err
	}
	// WriteTimeout stays 0 by default so /debug/pprof/profile (30s+) works.
	if out.WriteTimeout, err = config.ParseDurationField("http.write_timeout", hc.WriteTimeout); err != nil {
		return out, err
	}
	if out.IdleTimeout, err = config.ParseDurationOrDefault("http.idle_timeout", hc.IdleTimeout, time.Minute); err != nil {
		return out, err
	}
	return out, nil
}

// validate rejects configs that could not be applied. Used at boot and
// before every hot reload is committed.
func validate(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if cfg.Telegram.Workers < 0 {
		return errors.New("telegram.workers must be >= 0")
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapTriggerConfig(cfg); err != nil {
		return err
	}
	if _, err := mapParams(cfg); err != nil {
		return err
	}
	if _, _, err := mapLearnerConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, err := mapHTTPConfig(cfg); err != nil {
		return err
	}
	return nil
}
