package config

// Config is the whole bot configuration file. All durations are Go duration
// strings (e.g. "500ms", "15s", "1h").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Engine    EngineConfig    `json:"engine"`
	Learner   LearnerConfig   `json:"learner"`
	Content   ContentConfig   `json:"content"`
	Notifier  NotifierConfig  `json:"notifier"`
	HTTP      HTTPConfig      `json:"http"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// PollTimeout is the long-poll timeout (default "10s").
	PollTimeout string `json:"poll_timeout"`
	// Workers is the command dispatcher pool size (default 4).
	Workers int `json:"workers,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors warnings and errors into an ops chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig points at the SQLite database. Changes need a restart.
//
// Example:
//
//	"storage": { "path": "./motivator.db", "busy_timeout": "5s" }
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// SchedulerConfig controls when ticks and learning passes fire.
//
// Defaults (when fields are omitted):
//   - tick_interval: "1h", aligned to local midnight
//   - learner_schedule: "5 0 * * *"
//   - timezone: "UTC"
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"`

	TickInterval    string `json:"tick_interval,omitempty"`
	TickTimeout     string `json:"tick_timeout,omitempty"`
	LearnerSchedule string `json:"learner_schedule,omitempty"`
}

// EngineConfig tunes the per-tick decision. Reloadable.
type EngineConfig struct {
	PeakShare     float64 `json:"peak_share,omitempty"`
	CeilingFactor float64 `json:"ceiling_factor,omitempty"`

	// Reminders is a pointer so an explicit false can be told apart from "omitted".
	Reminders  *bool  `json:"reminders,omitempty"`
	ReminderAt string `json:"reminder_at,omitempty"` // HH:MM, default "20:00"

	DispatchTimeout    string `json:"dispatch_timeout,omitempty"`
	Workers            int    `json:"workers,omitempty"`
	DuplicateAvoidance int    `json:"duplicate_avoidance,omitempty"`
}

// LearnerConfig tunes the engagement learner. Reloadable.
type LearnerConfig struct {
	Enabled      *bool  `json:"enabled,omitempty"`
	Lookback     string `json:"lookback,omitempty"`
	MinEngaged   int    `json:"min_engaged,omitempty"`
	MaxShift     string `json:"max_shift,omitempty"`
	MinPeakWidth string `json:"min_peak_width,omitempty"`
	TopHours     int    `json:"top_hours,omitempty"`
}

// ContentConfig overrides the embedded catalog with a YAML file.
type ContentConfig struct {
	Path string `json:"path,omitempty"`
}

// NotifierConfig controls outbound delivery.
type NotifierConfig struct {
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	ParseMode  string `json:"parse_mode,omitempty"`

	FeedbackButtons *bool `json:"feedback_buttons,omitempty"`
}

// HTTPConfig controls the optional debug HTTP server (/healthz, /debug/last-tick,
// /debug/pprof/).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type HTTPConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:6060"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	// Runtime profiling rates. Leave 0 to keep Go defaults.
	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
}
