// Package bot implements the user-facing Telegram commands: registration,
// mood logging, on-demand motivation, timing preferences, feedback buttons
// and a few owner-only diagnostics.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"motivator/internal/domain"
	"motivator/internal/eventbus"
	"motivator/internal/schedule"
	"motivator/internal/transport/telegram/router"
	logx "motivator/pkg/logx"
)

// Store is the persistence surface used by the command handlers.
type Store interface {
	UpsertUser(ctx context.Context, u domain.User) (created bool, err error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	SetFrequency(ctx context.Context, id int64, f int) error
	SetLanguage(ctx context.Context, id int64, lang string) error
	SetTimezone(ctx context.Context, id int64, tz string) error

	GetTimingPreference(ctx context.Context, userID int64) (domain.TimingPreference, error)
	SaveTimingPreference(ctx context.Context, p domain.TimingPreference) error

	AddMoodEntry(ctx context.Context, e domain.MoodEntry) (int64, error)
	GetRecentMoodEntries(ctx context.Context, userID int64, since time.Time) ([]domain.MoodEntry, error)

	AppendSendRecord(ctx context.Context, r domain.SendRecord) (int64, error)
	RecentContentIDs(ctx context.Context, userID int64, limit int) ([]int64, error)
	RecordEngagement(ctx context.Context, userID int64, messageID int, score float64, at time.Time) (domain.SendRecord, error)

	ListSendRecords(ctx context.Context, userID int64, limit int) ([]domain.SendRecord, error)
	SendStats(ctx context.Context, since time.Time) (domain.SendStats, error)
}

// Content selects items for on-demand sends.
type Content interface {
	Select(ctx context.Context, language string, category domain.Category, exclude []int64) (domain.ContentItem, error)
	Supports(language string) bool
	Languages() []string
}

// TickSource exposes the last scheduling tick.
type TickSource interface {
	LastTick() *schedule.TickReport
}

type Deps struct {
	Store     Store
	Content   Content
	Messenger schedule.Messenger
	Ticks     TickSource
	Log       logx.Logger
	Bus       eventbus.Bus
	Sampler   schedule.Sampler
	Now       func() time.Time

	// DuplicateAvoidance is how many recent content ids are excluded from on-demand picks.
	DuplicateAvoidance int
}

// FeedbackEvent is published after a rating is stored.
type FeedbackEvent struct {
	UserID    int64     `json:"user_id"`
	MessageID int       `json:"message_id"`
	Score     float64   `json:"score"`
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`
}

// Bot owns the handlers. It is safe for concurrent use by router workers.
type Bot struct {
	d Deps
}

func New(d Deps) *Bot {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sampler == nil {
		d.Sampler = schedule.NewSampler(uint64(time.Now().UnixNano()))
	}
	if d.DuplicateAvoidance <= 0 {
		d.DuplicateAvoidance = 10
	}
	return &Bot{d: d}
}

func (b *Bot) Commands() []router.Command {
	return []router.Command{
		{Name: "start", Description: "register and get started", Handle: b.handleStart},
		{Name: "help", Description: "list all commands", Handle: b.handleHelp},
		{Name: "mood", Description: "log how you feel (1-10)", Handle: b.handleMood},
		{Name: "motivate", Description: "get motivation right now", Handle: b.handleMotivate, Timeout: 30 * time.Second},
		{Name: "frequency", Description: "messages per day (1-5)", Handle: b.handleFrequency},
		{Name: "pause", Description: "pause scheduled messages", Handle: b.handlePause},
		{Name: "resume", Description: "resume scheduled messages", Handle: b.handleResume},
		{Name: "language", Aliases: []string{"lang"}, Description: "choose your language", Handle: b.handleLanguage},
		{Name: "timezone", Aliases: []string{"tz"}, Description: "set your timezone", Handle: b.handleTimezone},
		{Name: "window", Description: "hours when messages may arrive", Handle: b.handleWindow},
		{Name: "peak", Description: "set a preferred time of day", Handle: b.handlePeak},
		{Name: "gap", Description: "minimum hours between messages", Handle: b.handleGap},
		{Name: "style", Description: "how messages are spread", Handle: b.handleStyle},
		{Name: "boost", Description: "more support on low-mood days", Handle: b.handleBoost},
		{Name: "autoadjust", Description: "learn your best hours", Handle: b.handleAutoAdjust},
		{Name: "status", Aliases: []string{"settings"}, Description: "show your settings", Handle: b.handleStatus},

		{Name: "admin_stats", Access: router.AccessOwnerOnly, Handle: b.handleAdminStats},
		{Name: "admin_log", Access: router.AccessOwnerOnly, Handle: b.handleAdminLog},
		{Name: "admin_tick", Access: router.AccessOwnerOnly, Handle: b.handleAdminTick},
	}
}

func (b *Bot) Callbacks() []router.CallbackRoute {
	return []router.CallbackRoute{
		{Prefix: "fb", Handle: b.handleFeedback},
		{Prefix: "mood", Handle: b.handleMoodButton, Timeout: 30 * time.Second},
	}
}

// Unknown answers commands without a route.
func (b *Bot) Unknown(ctx context.Context, req *router.Request) error {
	_, err := req.Reply(ctx, tr(b.language(ctx, req), txtUnknown), nil)
	return err
}

// user loads the requesting user. When the user is unknown it replies with a
// registration hint and returns ok=false.
func (b *Bot) user(ctx context.Context, req *router.Request) (domain.User, bool, error) {
	u, err := b.d.Store.GetUser(ctx, req.Chat.ChatID)
	if errors.Is(err, domain.ErrNotFound) {
		_, rerr := req.Reply(ctx, tr(clientLanguage(req), txtNotRegistered), nil)
		return domain.User{}, false, rerr
	}
	if err != nil {
		b.fail(ctx, req, domain.DefaultLanguage, err)
		return domain.User{}, false, err
	}
	return u, true, nil
}

// language returns the stored language of the requester or their client's.
func (b *Bot) language(ctx context.Context, req *router.Request) string {
	if u, err := b.d.Store.GetUser(ctx, req.Chat.ChatID); err == nil {
		return u.Language
	}
	return clientLanguage(req)
}

func clientLanguage(req *router.Request) string {
	if req.Message == nil {
		return domain.DefaultLanguage
	}
	code := strings.ToLower(req.Message.LanguageCode)
	if strings.HasPrefix(code, "de") {
		return "de"
	}
	return domain.DefaultLanguage
}

func (b *Bot) fail(ctx context.Context, req *router.Request, lang string, err error) {
	req.Logger.Error("command failed", logx.Err(err))
	if req.Callback != nil {
		req.Answer = tr(lang, txtFailed)
		return
	}
	_, _ = req.Reply(ctx, tr(lang, txtFailed), nil)
}

func (b *Bot) publish(typ string, data any) {
	if b.d.Bus == nil {
		return
	}
	b.d.Bus.Publish(eventbus.Event{Type: typ, Time: b.d.Now(), Data: data})
}
