package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"motivator/internal/domain"
	"motivator/internal/eventbus"
	"motivator/internal/schedule"
	"motivator/internal/transport/telegram/router"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeTicks struct{ rep *schedule.TickReport }

func (f fakeTicks) LastTick() *schedule.TickReport { return f.rep }

func catalogItems() []domain.ContentItem {
	var items []domain.ContentItem
	id := int64(1)
	for _, lang := range []string{"en", "de"} {
		for _, c := range domain.AllCategories {
			for n := 0; n < 2; n++ {
				items = append(items, domain.ContentItem{
					ID:       id,
					Language: lang,
					Category: c,
					Type:     domain.ContentText,
					Text:     lang + " " + c.String() + " text",
				})
				id++
			}
		}
	}
	return items
}

type harness struct {
	bot   *Bot
	store *memStore
	ad    *recAdapter
	msgr  *recMessenger
	bus   eventbus.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: newMemStore(), ad: &recAdapter{}, msgr: &recMessenger{}, bus: eventbus.New()}
	h.bot = New(Deps{
		Store:     h.store,
		Content:   &fixedContent{items: catalogItems()},
		Messenger: h.msgr,
		Bus:       h.bus,
		Sampler:   schedule.NewSampler(1),
		Now:       func() time.Time { return testNow },
	})
	return h
}

func (h *harness) register(t *testing.T, id int64) {
	t.Helper()
	if _, err := h.store.UpsertUser(context.Background(), domain.User{ID: id, FirstName: "Ana"}); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func (h *harness) handler(t *testing.T, cmd string) router.HandlerFunc {
	t.Helper()
	name := strings.TrimPrefix(cmd, "/")
	for _, c := range h.bot.Commands() {
		if c.Name == name {
			return c.Handle
		}
	}
	t.Fatalf("no command %s", name)
	return nil
}

func TestStartRegistersUser(t *testing.T) {
	h := newHarness(t)
	events, unsub := h.bus.Subscribe(4)
	defer unsub()

	req := command(h.ad, 7, "/start")
	req.Message.LanguageCode = "de-DE"
	if err := h.bot.handleStart(context.Background(), req); err != nil {
		t.Fatalf("start: %v", err)
	}
	u, err := h.store.GetUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.Language != "de" {
		t.Fatalf("language=%q want de", u.Language)
	}
	if !strings.Contains(h.ad.last(), "Willkommen, Ana!") {
		t.Fatalf("reply=%q", h.ad.last())
	}
	select {
	case e := <-events:
		if e.Type != eventbus.TypeUserRegistered {
			t.Fatalf("event=%q", e.Type)
		}
	default:
		t.Fatalf("no registration event")
	}

	// A returning user who was deactivated is resumed and not re-announced.
	_ = h.store.SetUserActive(context.Background(), 7, false)
	if err := h.bot.handleStart(context.Background(), command(h.ad, 7, "/start")); err != nil {
		t.Fatalf("start again: %v", err)
	}
	if u, _ := h.store.GetUser(context.Background(), 7); !u.Active {
		t.Fatalf("user still paused")
	}
	select {
	case e := <-events:
		t.Fatalf("unexpected event %q", e.Type)
	default:
	}
}

func TestCommandsNeedRegistration(t *testing.T) {
	h := newHarness(t)
	if err := h.bot.handleMood(context.Background(), command(h.ad, 9, "/mood 5")); err != nil {
		t.Fatalf("mood: %v", err)
	}
	if h.ad.last() != "Please send /start first." {
		t.Fatalf("reply=%q", h.ad.last())
	}
	if len(h.store.moods) != 0 {
		t.Fatalf("mood stored for unknown user")
	}
}

func TestMoodCommand(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)

	if err := h.bot.handleMood(context.Background(), command(h.ad, 1, "/mood 7 it's been a long day")); err != nil {
		t.Fatalf("mood: %v", err)
	}
	if len(h.store.moods) != 1 {
		t.Fatalf("moods=%d", len(h.store.moods))
	}
	m := h.store.moods[0]
	if m.Score != 7 || m.Note != "it's been a long day" || !m.At.Equal(testNow) {
		t.Fatalf("entry=%+v", m)
	}
	if h.ad.last() != "Thanks for sharing! Mood logged: 7/10 📝" {
		t.Fatalf("reply=%q", h.ad.last())
	}

	for _, bad := range []string{"/mood 0", "/mood 11", "/mood great"} {
		if err := h.bot.handleMood(context.Background(), command(h.ad, 1, bad)); err != nil {
			t.Fatalf("%s: %v", bad, err)
		}
		if h.ad.last() != "Usage: /mood 1-10 [note]" {
			t.Fatalf("%s: reply=%q", bad, h.ad.last())
		}
	}
	if len(h.store.moods) != 1 {
		t.Fatalf("invalid scores were stored")
	}
}

func TestMoodPromptKeyboard(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	if err := h.bot.handleMood(context.Background(), command(h.ad, 1, "/mood")); err != nil {
		t.Fatalf("mood: %v", err)
	}
	opt := h.ad.opts[len(h.ad.opts)-1]
	if opt == nil || len(opt.Buttons) != 2 || len(opt.Buttons[0]) != 5 || len(opt.Buttons[1]) != 5 {
		t.Fatalf("keyboard=%+v", opt)
	}
	first, last := opt.Buttons[0][0], opt.Buttons[1][4]
	if first.Data != "mood:1" || first.Text != "1 😢" || last.Data != "mood:10" || last.Text != "10 🤩" {
		t.Fatalf("buttons first=%+v last=%+v", first, last)
	}
}

func TestMoodButtonEditsPrompt(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)

	req := callback(h.ad, 1, 42, "mood:2")
	if err := h.bot.handleMoodButton(context.Background(), req); err != nil {
		t.Fatalf("mood button: %v", err)
	}
	if len(h.store.moods) != 1 || h.store.moods[0].Score != 2 {
		t.Fatalf("moods=%+v", h.store.moods)
	}
	if len(h.ad.edits) != 1 {
		t.Fatalf("edits=%d", len(h.ad.edits))
	}
	e := h.ad.edits[0]
	if e.ref.MessageID != 42 || !strings.HasPrefix(e.text, "Thanks for sharing! Mood logged: 2/10 📝\n\nen ") {
		t.Fatalf("edit=%+v", e)
	}
	if len(e.opt.Buttons) != 1 || len(e.opt.Buttons[0]) != 3 {
		t.Fatalf("feedback keyboard missing: %+v", e.opt.Buttons)
	}
	if len(h.store.records) != 1 {
		t.Fatalf("records=%d", len(h.store.records))
	}
	rec := h.store.records[0]
	if rec.Kind != domain.KindOnDemand || rec.MessageID != 42 {
		t.Fatalf("record=%+v", rec)
	}
	low := schedule.CategoryCandidates(&domain.MoodEntry{Score: 2})
	found := false
	for _, c := range low {
		found = found || c == rec.Category
	}
	if !found {
		t.Fatalf("category %s not a low-mood category", rec.Category)
	}
}

func TestMotivateAvoidsRepeats(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)

	for i := 0; i < 2; i++ {
		if err := h.bot.handleMotivate(context.Background(), command(h.ad, 1, "/motivate")); err != nil {
			t.Fatalf("motivate %d: %v", i, err)
		}
	}
	if len(h.msgr.delivered) != 2 {
		t.Fatalf("delivered=%d", len(h.msgr.delivered))
	}
	a, b := h.msgr.delivered[0], h.msgr.delivered[1]
	if a.ID == b.ID {
		t.Fatalf("same item twice: %d", a.ID)
	}
	if a.Category != domain.CategoryMotivation {
		t.Fatalf("category=%s", a.Category)
	}
	rec := h.store.records[1]
	if rec.Kind != domain.KindOnDemand || rec.MessageID != 502 || rec.ContentID != b.ID || rec.CorrelationID != "req1" {
		t.Fatalf("record=%+v", rec)
	}
}

func TestMotivateDeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	h.msgr.err = &domain.DeliveryError{UserID: 1, Err: errors.New("boom")}

	err := h.bot.handleMotivate(context.Background(), command(h.ad, 1, "/motivate"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.HasPrefix(h.ad.last(), "Sorry, there was an issue") {
		t.Fatalf("reply=%q", h.ad.last())
	}
	if len(h.store.records) != 0 {
		t.Fatalf("failed send was recorded")
	}
}

func TestFeedback(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	events, unsub := h.bus.Subscribe(4)
	defer unsub()

	sent := testNow.Add(-time.Hour)
	_, _ = h.store.AppendSendRecord(context.Background(), domain.SendRecord{
		UserID: 1, Kind: domain.KindScheduled, ScheduledAt: sent, SentAt: &sent, MessageID: 77, ContentID: 3,
	})

	tests := []struct {
		name   string
		msg    int
		data   string
		answer string
	}{
		{"first rating", 77, "fb:love", "❤️ Thank you! So glad that message helped you!"},
		{"second rating", 77, "fb:dislike", "You already rated this message."},
		{"unknown message", 78, "fb:like", "This message can no longer be rated."},
		{"unknown payload", 77, "fb:meh", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := callback(h.ad, 1, tc.msg, tc.data)
			if err := h.bot.handleFeedback(context.Background(), req); err != nil {
				t.Fatalf("feedback: %v", err)
			}
			if req.Answer != tc.answer {
				t.Fatalf("answer=%q want %q", req.Answer, tc.answer)
			}
		})
	}

	rec := h.store.records[0]
	if rec.Engagement == nil || *rec.Engagement != domain.EngagementLove {
		t.Fatalf("engagement=%v", rec.Engagement)
	}
	if rec.ResponseDelay == nil || *rec.ResponseDelay != time.Hour {
		t.Fatalf("delay=%v", rec.ResponseDelay)
	}
	select {
	case e := <-events:
		fe, ok := e.Data.(FeedbackEvent)
		if e.Type != eventbus.TypeFeedback || !ok || fe.MessageID != 77 || fe.Score != domain.EngagementLove {
			t.Fatalf("event=%+v", e)
		}
	default:
		t.Fatalf("no feedback event")
	}
}

func TestTimingCommands(t *testing.T) {
	tests := []struct {
		text  string
		reply string
		check func(p domain.TimingPreference) bool
	}{
		{"/window 09:00-21:30", "🕐 I'll only write between 09:00-21:30.", func(p domain.TimingPreference) bool {
			return p.Active.String() == "09:00-21:30"
		}},
		{"/window 22:00-08:00", "Usage: /window 08:00-22:00", nil},
		{"/peak evening 19:00-21:00", "⭐ evening peak set to 19:00-21:00.", func(p domain.TimingPreference) bool {
			return p.Peaks[domain.PeakEvening].String() == "19:00-21:00"
		}},
		{"/peak night 01:00-02:00", "Usage: /peak morning|afternoon|evening 08:00-10:00", nil},
		{"/gap 4", "⏱️ At least 4 hour(s) between messages.", func(p domain.TimingPreference) bool {
			return p.MinGapHours == 4
		}},
		{"/gap 7", "Usage: /gap 1-6", nil},
		{"/style random", "📐 Distribution style: random.", func(p domain.TimingPreference) bool {
			return p.Style == domain.StyleRandom
		}},
		{"/style chaotic", "Usage: /style peak_focused|even_spacing|random", nil},
		{"/boost off", "💙 Mood boost: off.", func(p domain.TimingPreference) bool {
			return !p.MoodBoost
		}},
		{"/autoadjust maybe", "Usage: /autoadjust on|off", nil},
		{"/autoadjust off", "🧠 Auto-adjust: off.", func(p domain.TimingPreference) bool {
			return !p.AutoAdjust
		}},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			h := newHarness(t)
			h.register(t, 1)
			req := command(h.ad, 1, tc.text)
			if err := h.handler(t, req.Command)(context.Background(), req); err != nil {
				t.Fatalf("handler: %v", err)
			}
			if h.ad.last() != tc.reply {
				t.Fatalf("reply=%q want %q", h.ad.last(), tc.reply)
			}
			p, _ := h.store.GetTimingPreference(context.Background(), 1)
			if tc.check == nil {
				if _, saved := h.store.prefs[1]; saved {
					t.Fatalf("invalid input saved a preference")
				}
				return
			}
			if !tc.check(p) {
				t.Fatalf("preference not applied: %+v", p)
			}
			if !p.UpdatedAt.Equal(testNow) {
				t.Fatalf("updated_at=%v", p.UpdatedAt)
			}
		})
	}
}

func TestLanguageAndTimezone(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	ctx := context.Background()

	if err := h.bot.handleLanguage(ctx, command(h.ad, 1, "/language fr")); err != nil {
		t.Fatalf("language: %v", err)
	}
	if h.ad.last() != "Usage: /language de|en" {
		t.Fatalf("reply=%q", h.ad.last())
	}
	if err := h.bot.handleLanguage(ctx, command(h.ad, 1, "/language DE")); err != nil {
		t.Fatalf("language: %v", err)
	}
	if h.ad.last() != "🇩🇪 Sprache auf Deutsch eingestellt!" {
		t.Fatalf("reply=%q", h.ad.last())
	}

	if err := h.bot.handleTimezone(ctx, command(h.ad, 1, "/timezone Mars/Olympus")); err != nil {
		t.Fatalf("timezone: %v", err)
	}
	if err := h.bot.handleTimezone(ctx, command(h.ad, 1, "/timezone Europe/Berlin")); err != nil {
		t.Fatalf("timezone: %v", err)
	}
	u, _ := h.store.GetUser(ctx, 1)
	if u.Language != "de" || u.Timezone != "Europe/Berlin" {
		t.Fatalf("user=%+v", u)
	}
}

func TestPauseResumeFrequency(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	ctx := context.Background()

	_ = h.bot.handlePause(ctx, command(h.ad, 1, "/pause"))
	if u, _ := h.store.GetUser(ctx, 1); u.Active {
		t.Fatalf("still active after /pause")
	}
	_ = h.bot.handleResume(ctx, command(h.ad, 1, "/resume"))
	if u, _ := h.store.GetUser(ctx, 1); !u.Active {
		t.Fatalf("inactive after /resume")
	}
	_ = h.bot.handleFrequency(ctx, command(h.ad, 1, "/frequency 6"))
	if h.ad.last() != "Usage: /frequency 1-5" {
		t.Fatalf("reply=%q", h.ad.last())
	}
	_ = h.bot.handleFrequency(ctx, command(h.ad, 1, "/frequency 4"))
	if u, _ := h.store.GetUser(ctx, 1); u.Frequency != 4 {
		t.Fatalf("frequency=%d", u.Frequency)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.register(t, 1)
	ctx := context.Background()
	_, _ = h.store.AddMoodEntry(ctx, domain.MoodEntry{UserID: 1, Score: 4, At: testNow.Add(-time.Hour)})
	_, _ = h.store.AddMoodEntry(ctx, domain.MoodEntry{UserID: 1, Score: 7, At: testNow.Add(-48 * time.Hour)})
	_, _ = h.store.AddMoodEntry(ctx, domain.MoodEntry{UserID: 1, Score: 1, At: testNow.Add(-10 * 24 * time.Hour)})

	if err := h.bot.handleStatus(ctx, command(h.ad, 1, "/status")); err != nil {
		t.Fatalf("status: %v", err)
	}
	out := h.ad.last()
	for _, want := range []string{"active, 2 per day", "Timezone: UTC", "Window: 08:00-22:00", "Entries: 2", "Average: 5.5/10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q:\n%s", want, out)
		}
	}
}

func TestAdminTick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.bot.handleAdminTick(ctx, command(h.ad, 1, "/admin_tick")); err != nil {
		t.Fatalf("admin_tick: %v", err)
	}
	if h.ad.last() != "No tick yet" {
		t.Fatalf("reply=%q", h.ad.last())
	}

	h.bot.d.Ticks = fakeTicks{rep: &schedule.TickReport{ID: "t1", At: testNow, Users: 3, Sent: 1, Vetoed: 1}}
	if err := h.bot.handleAdminTick(ctx, command(h.ad, 1, "/admin_tick")); err != nil {
		t.Fatalf("admin_tick: %v", err)
	}
	if out := h.ad.last(); !strings.Contains(out, "Tick t1") || !strings.Contains(out, "Sent: 1  Failed: 0  Vetoed: 1") {
		t.Fatalf("reply=%q", out)
	}
}

func TestCommandsAreRoutable(t *testing.T) {
	h := newHarness(t)
	seen := map[string]bool{}
	for _, c := range h.bot.Commands() {
		if c.Handle == nil {
			t.Fatalf("%s has no handler", c.Name)
		}
		if seen[c.Name] {
			t.Fatalf("duplicate command %s", c.Name)
		}
		seen[c.Name] = true
		if strings.HasPrefix(c.Name, "admin_") && c.Access != router.AccessOwnerOnly {
			t.Fatalf("%s is not owner-only", c.Name)
		}
	}
	for _, name := range []string{"start", "mood", "motivate", "window", "status"} {
		if !seen[name] {
			t.Fatalf("missing /%s", name)
		}
	}
}
