package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"motivator/internal/domain"
	"motivator/internal/transport/telegram/router"
)

const (
	adminStatsDefaultHours = 24
	adminLogDefaultLimit   = 10
	adminLogMaxLimit       = 50
)

// intArg parses args[i] as a positive int, returning def when absent or bad.
func intArg(args []string, i, def, maxV int) int {
	if len(args) <= i {
		return def
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return def
	}
	if maxV > 0 && n > maxV {
		return maxV
	}
	return n
}

func (b *Bot) handleAdminStats(ctx context.Context, req *router.Request) error {
	hours := intArg(req.Args, 0, adminStatsDefaultHours, 24*30)
	st, err := b.d.Store.SendStats(ctx, b.d.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		b.fail(ctx, req, domain.DefaultLanguage, err)
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 Stats (last %dh)\n━━━━━━━━━━━━━━━━━━━━\n", hours)
	fmt.Fprintf(&sb, "Users: %d (%d active)\n", st.Users, st.ActiveUsers)
	fmt.Fprintf(&sb, "Delivered: %d\nFailed: %d\nMood reminders: %d\n", st.Delivered, st.Failed, st.Reminders)
	fmt.Fprintf(&sb, "Rated: %d (avg %.2f)", st.Engaged, st.AvgEngage)
	_, err = req.Reply(ctx, sb.String(), nil)
	return err
}

func (b *Bot) handleAdminLog(ctx context.Context, req *router.Request) error {
	if len(req.Args) == 0 {
		_, err := req.Reply(ctx, "Usage: /admin_log <user_id> [limit]", nil)
		return err
	}
	userID, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil {
		_, err := req.Reply(ctx, "Usage: /admin_log <user_id> [limit]", nil)
		return err
	}
	limit := intArg(req.Args, 1, adminLogDefaultLimit, adminLogMaxLimit)
	recs, err := b.d.Store.ListSendRecords(ctx, userID, limit)
	if err != nil {
		b.fail(ctx, req, domain.DefaultLanguage, err)
		return err
	}
	if len(recs) == 0 {
		_, err := req.Reply(ctx, fmt.Sprintf("No sends for %d", userID), nil)
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Last %d sends for %d\n", len(recs), userID)
	for _, r := range recs {
		sb.WriteString("\n")
		sb.WriteString(formatRecord(r))
	}
	_, err = req.Reply(ctx, sb.String(), nil)
	return err
}

func formatRecord(r domain.SendRecord) string {
	status := "✅"
	if !r.Delivered() {
		status = "❌"
	}
	line := fmt.Sprintf("%s %s %s", status, r.ScheduledAt.UTC().Format("01-02 15:04"), r.Kind)
	if r.Kind != domain.KindMoodReminder {
		line += fmt.Sprintf(" %s #%d", r.Category, r.ContentID)
	}
	if r.Engagement != nil {
		line += fmt.Sprintf(" ★%.1f", *r.Engagement)
	}
	if r.Error != "" {
		line += " (" + r.Error + ")"
	}
	return line
}

func (b *Bot) handleAdminTick(ctx context.Context, req *router.Request) error {
	if b.d.Ticks == nil {
		_, err := req.Reply(ctx, "No tick yet", nil)
		return err
	}
	t := b.d.Ticks.LastTick()
	if t == nil {
		_, err := req.Reply(ctx, "No tick yet", nil)
		return err
	}
	text := fmt.Sprintf(
		"⏱️ Tick %s\nAt: %s (took %s)\nUsers: %d\nSent: %d  Failed: %d  Vetoed: %d\nReminders: %d  Errors: %d",
		t.ID, t.At.UTC().Format(time.RFC3339), t.Took.Round(time.Millisecond),
		t.Users, t.Sent, t.Failed, t.Vetoed, t.Reminders, t.Errors,
	)
	if t.Interrupted {
		text += "\n⚠️ interrupted"
	}
	_, err := req.Reply(ctx, text, nil)
	return err
}
