package config

import (
	"reflect"
	"slices"
	"sort"
	"strings"

	logx "motivator/pkg/logx"
)

// RestartRequired lists sections whose changes only take effect after a restart.
var RestartRequired = []string{"storage", "telegram.token", "http.addr"}

// SummarizeChange returns the changed sections and safe structured attrs for
// logging. Secrets (bot token, http token) are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 24)

	if oldCfg.Telegram.Token != newCfg.Telegram.Token {
		changed = append(changed, "telegram.token")
	}
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		oldCfg.Telegram.Workers != newCfg.Telegram.Workers ||
		!slices.Equal(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			logx.Int("telegram.workers", newCfg.Telegram.Workers),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Storage.Path) != strings.TrimSpace(newCfg.Storage.Path) ||
		strings.TrimSpace(oldCfg.Storage.BusyTimeout) != strings.TrimSpace(newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.path", strings.TrimSpace(newCfg.Storage.Path)),
			logx.String("storage.busy_timeout", strings.TrimSpace(newCfg.Storage.BusyTimeout)),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.String("scheduler.tick_interval", strings.TrimSpace(newCfg.Scheduler.TickInterval)),
			logx.String("scheduler.learner_schedule", strings.TrimSpace(newCfg.Scheduler.LearnerSchedule)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Engine, newCfg.Engine) {
		changed = append(changed, "engine")
		attrs = append(attrs,
			logx.Float64("engine.peak_share", newCfg.Engine.PeakShare),
			logx.Float64("engine.ceiling_factor", newCfg.Engine.CeilingFactor),
			logx.String("engine.reminder_at", newCfg.Engine.ReminderAt),
			logx.Int("engine.workers", newCfg.Engine.Workers),
		)
	}

	if !reflect.DeepEqual(oldCfg.Learner, newCfg.Learner) {
		changed = append(changed, "learner")
		attrs = append(attrs,
			logx.String("learner.lookback", newCfg.Learner.Lookback),
			logx.Int("learner.min_engaged", newCfg.Learner.MinEngaged),
			logx.String("learner.max_shift", newCfg.Learner.MaxShift),
		)
	}

	if oldCfg.Content != newCfg.Content {
		changed = append(changed, "content")
		attrs = append(attrs, logx.String("content.path", newCfg.Content.Path))
	}

	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.String("notifier.parse_mode", newCfg.Notifier.ParseMode),
		)
	}

	oh, nh := oldCfg.HTTP, newCfg.HTTP
	tokenChanged := oh.Token != nh.Token
	tokenSet := strings.TrimSpace(nh.Token) != ""
	oh.Token, nh.Token = "", ""
	if strings.TrimSpace(oh.Addr) != strings.TrimSpace(nh.Addr) {
		changed = append(changed, "http.addr")
	}
	if oh != nh || tokenChanged {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", nh.Enabled),
			logx.String("http.addr", strings.TrimSpace(nh.Addr)),
			logx.Bool("http.token_set", tokenSet),
			logx.Bool("http.pprof", nh.Pprof),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// NeedsRestart returns the changed sections that cannot be applied live.
func NeedsRestart(changed []string) []string {
	var out []string
	for _, s := range changed {
		if slices.Contains(RestartRequired, s) {
			out = append(out, s)
		}
	}
	return out
}
