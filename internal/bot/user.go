package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"motivator/internal/domain"
	"motivator/internal/eventbus"
	"motivator/internal/notifier"
	"motivator/internal/schedule"
	kit "motivator/internal/transport"
	"motivator/internal/transport/telegram/router"
	logx "motivator/pkg/logx"
)

const statusMoodWindow = 7 * 24 * time.Hour

func htmlOpt() *kit.SendOptions {
	return &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}
}

func (b *Bot) handleStart(ctx context.Context, req *router.Request) error {
	if req.Message == nil {
		return nil
	}
	lang := clientLanguage(req)
	created, err := b.d.Store.UpsertUser(ctx, domain.User{
		ID:        req.Chat.ChatID,
		Username:  req.Message.FromUsername,
		FirstName: req.Message.FirstName,
		Language:  lang,
	})
	if err != nil {
		b.fail(ctx, req, lang, err)
		return err
	}
	u, err := b.d.Store.GetUser(ctx, req.Chat.ChatID)
	if err != nil {
		b.fail(ctx, req, lang, err)
		return err
	}
	if created {
		req.Logger.Info("user registered", logx.String("lang", u.Language))
		b.publish(eventbus.TypeUserRegistered, u)
	} else if !u.Active {
		if err := b.d.Store.SetUserActive(ctx, u.ID, true); err != nil {
			b.fail(ctx, req, u.Language, err)
			return err
		}
	}

	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = "friend"
	}
	_, err = req.Reply(ctx, tr(u.Language, txtWelcome, html.EscapeString(name)), htmlOpt())
	return err
}

func (b *Bot) handleHelp(ctx context.Context, req *router.Request) error {
	_, err := req.Reply(ctx, tr(b.language(ctx, req), txtHelp), htmlOpt())
	return err
}

func (b *Bot) handleMood(ctx context.Context, req *router.Request) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	if len(req.Args) == 0 {
		_, err := req.Reply(ctx, tr(u.Language, txtMoodPrompt), &kit.SendOptions{
			ParseMode: "HTML",
			Buttons:   moodKeyboard(),
		})
		return err
	}

	score, err := strconv.Atoi(req.Args[0])
	if err != nil || !domain.ValidMoodScore(score) {
		_, err := req.Reply(ctx, tr(u.Language, txtMoodUsage), nil)
		return err
	}
	note := strings.TrimSpace(strings.TrimPrefix(req.Rest, req.Args[0]))
	if _, err := b.logMood(ctx, u.ID, score, note); err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	_, err = req.Reply(ctx, tr(u.Language, txtMoodLogged, score), nil)
	return err
}

func (b *Bot) logMood(ctx context.Context, userID int64, score int, note string) (domain.MoodEntry, error) {
	e := domain.MoodEntry{UserID: userID, Score: score, Note: note, At: b.d.Now()}
	id, err := b.d.Store.AddMoodEntry(ctx, e)
	if err != nil {
		return domain.MoodEntry{}, err
	}
	e.ID = id
	return e, nil
}

// moodKeyboard lays out scores 1..10 in two rows.
func moodKeyboard() [][]kit.Button {
	rows := make([][]kit.Button, 2)
	for i := domain.MinMoodScore; i <= domain.MaxMoodScore; i++ {
		row := (i - 1) / 5
		rows[row] = append(rows[row], kit.Button{
			Text: fmt.Sprintf("%d %s", i, moodEmoji(i)),
			Data: "mood:" + strconv.Itoa(i),
		})
	}
	return rows
}

func moodEmoji(score int) string {
	switch {
	case score <= 3:
		return "😢"
	case score <= 5:
		return "😐"
	case score <= 8:
		return "😊"
	default:
		return "🤩"
	}
}

// handleMoodButton logs the chosen score and turns the keyboard message into
// a piece of content matched to the mood.
func (b *Bot) handleMoodButton(ctx context.Context, req *router.Request) error {
	score, err := strconv.Atoi(req.Payload)
	if err != nil || !domain.ValidMoodScore(score) {
		return nil
	}
	u, err := b.d.Store.GetUser(ctx, req.Chat.ChatID)
	if err != nil {
		b.fail(ctx, req, domain.DefaultLanguage, err)
		return err
	}
	entry, err := b.logMood(ctx, u.ID, score, "")
	if err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}

	text := tr(u.Language, txtMoodLogged, score)
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true, Buttons: [][]kit.Button{}}
	item, err := b.pick(ctx, u, schedule.CategoryFor(&entry, b.d.Sampler))
	switch {
	case err == nil:
		text += "\n\n" + html.EscapeString(notifier.Format(item))
		opt.Buttons = notifier.FeedbackKeyboard()
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		req.Logger.Warn("no content for mood reply", logx.Err(err))
	}

	ref := kit.MessageRef{ChatID: req.Chat.ChatID, ThreadID: req.Chat.ThreadID, MessageID: req.Callback.MessageID}
	if err := req.Adapter.EditText(ctx, ref, text, opt); err != nil {
		req.Logger.Warn("mood reply edit failed", logx.Err(err))
		return err
	}
	if item.ID != 0 {
		b.recordOnDemand(ctx, req, u.ID, item, ref.MessageID)
	}
	return nil
}

func (b *Bot) handleMotivate(ctx context.Context, req *router.Request) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	item, err := b.pick(ctx, u, domain.CategoryMotivation)
	if err != nil {
		req.Logger.Warn("no content for /motivate", logx.Err(err))
		_, rerr := req.Reply(ctx, tr(u.Language, txtMotivateFailed), nil)
		return rerr
	}
	rc, err := b.d.Messenger.Deliver(ctx, u.ID, item)
	if err != nil {
		req.Logger.Warn("motivate delivery failed", logx.Err(err))
		_, _ = req.Reply(ctx, tr(u.Language, txtMotivateFailed), nil)
		return err
	}
	b.recordOnDemand(ctx, req, u.ID, item, rc.MessageID)
	return nil
}

// pick selects content for an on-demand send, preferring items the user has
// not seen recently.
func (b *Bot) pick(ctx context.Context, u domain.User, cat domain.Category) (domain.ContentItem, error) {
	recent, err := b.d.Store.RecentContentIDs(ctx, u.ID, b.d.DuplicateAvoidance)
	if err != nil {
		b.d.Log.Warn("recent content lookup failed", logx.Int64("user_id", u.ID), logx.Err(err))
		recent = nil
	}
	return b.d.Content.Select(ctx, u.Language, cat, recent)
}

func (b *Bot) recordOnDemand(ctx context.Context, req *router.Request, userID int64, item domain.ContentItem, messageID int) {
	now := b.d.Now()
	_, err := b.d.Store.AppendSendRecord(ctx, domain.SendRecord{
		UserID:        userID,
		Kind:          domain.KindOnDemand,
		ScheduledAt:   now,
		SentAt:        &now,
		Category:      item.Category,
		ContentID:     item.ID,
		MessageID:     messageID,
		CorrelationID: req.ReqID,
	})
	if err != nil {
		req.Logger.Warn("on-demand record failed", logx.Err(err))
	}
}

func (b *Bot) handleFrequency(ctx context.Context, req *router.Request) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	if len(req.Args) != 1 {
		_, err := req.Reply(ctx, tr(u.Language, txtFrequencyUsage), nil)
		return err
	}
	f, err := strconv.Atoi(req.Args[0])
	if err != nil || f < domain.MinFrequency || f > domain.MaxFrequency {
		_, err := req.Reply(ctx, tr(u.Language, txtFrequencyUsage), nil)
		return err
	}
	if err := b.d.Store.SetFrequency(ctx, u.ID, f); err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	_, err = req.Reply(ctx, tr(u.Language, txtFrequencySet, f), nil)
	return err
}

func (b *Bot) handlePause(ctx context.Context, req *router.Request) error {
	return b.setActive(ctx, req, false)
}

func (b *Bot) handleResume(ctx context.Context, req *router.Request) error {
	return b.setActive(ctx, req, true)
}

func (b *Bot) setActive(ctx context.Context, req *router.Request, active bool) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	if err := b.d.Store.SetUserActive(ctx, u.ID, active); err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	key := txtPaused
	if active {
		key = txtResumed
	}
	_, err = req.Reply(ctx, tr(u.Language, key), nil)
	return err
}

func (b *Bot) handleLanguage(ctx context.Context, req *router.Request) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	usage := tr(u.Language, txtLanguageUsage, strings.Join(b.d.Content.Languages(), "|"))
	if len(req.Args) != 1 {
		_, err := req.Reply(ctx, usage, nil)
		return err
	}
	lang := strings.ToLower(req.Args[0])
	if !b.d.Content.Supports(lang) {
		_, err := req.Reply(ctx, usage, nil)
		return err
	}
	if err := b.d.Store.SetLanguage(ctx, u.ID, lang); err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	_, err = req.Reply(ctx, tr(lang, txtLanguageSet), nil)
	return err
}

func (b *Bot) handleTimezone(ctx context.Context, req *router.Request) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	if len(req.Args) != 1 {
		_, err := req.Reply(ctx, tr(u.Language, txtTimezoneUsage), nil)
		return err
	}
	tz := req.Args[0]
	if _, err := time.LoadLocation(tz); err != nil || tz == "Local" {
		_, err := req.Reply(ctx, tr(u.Language, txtTimezoneUsage), nil)
		return err
	}
	if err := b.d.Store.SetTimezone(ctx, u.ID, tz); err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	_, err = req.Reply(ctx, tr(u.Language, txtTimezoneSet, tz), nil)
	return err
}

func (b *Bot) handleStatus(ctx context.Context, req *router.Request) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	p, err := b.d.Store.GetTimingPreference(ctx, u.ID)
	if err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	moods, err := b.d.Store.GetRecentMoodEntries(ctx, u.ID, b.d.Now().Add(-statusMoodWindow))
	if err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	var sum int
	for _, m := range moods {
		sum += m.Score
	}
	var avg float64
	if len(moods) > 0 {
		avg = float64(sum) / float64(len(moods))
	}
	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}
	text := tr(u.Language, txtStatus,
		activeLabel(u.Language, u.Active), u.Frequency,
		u.Language, html.EscapeString(tz),
		p.Active.String(), joinWindows(p.Peaks), p.MinGapHours, string(p.Style),
		onOff(u.Language, p.MoodBoost), onOff(u.Language, p.AutoAdjust),
		len(moods), averageLabel(u.Language, avg, len(moods)),
	)
	_, err = req.Reply(ctx, text, htmlOpt())
	return err
}
