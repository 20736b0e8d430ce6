package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"motivator/internal/domain"
	"motivator/internal/transport/telegram/router"
)

var peakNames = map[string]int{
	"morning":   domain.PeakMorning,
	"afternoon": domain.PeakAfternoon,
	"evening":   domain.PeakEvening,
}

// updatePreference loads the requester's preference, applies fn and saves it.
// fn returns the confirmation text, or "" with ok=false to reply usage.
func (b *Bot) updatePreference(ctx context.Context, req *router.Request, usage textKey, fn func(u domain.User, p *domain.TimingPreference) (string, bool)) error {
	u, ok, err := b.user(ctx, req)
	if !ok {
		return err
	}
	p, err := b.d.Store.GetTimingPreference(ctx, u.ID)
	if err != nil {
		b.fail(ctx, req, u.Language, err)
		return err
	}
	reply, ok := fn(u, &p)
	if !ok {
		_, err := req.Reply(ctx, tr(u.Language, usage), nil)
		return err
	}
	p.UpdatedAt = b.d.Now()
	if err := b.d.Store.SaveTimingPreference(ctx, p); err != nil {
		var inv *domain.InvalidPreferenceError
		if errors.As(err, &inv) {
			_, rerr := req.Reply(ctx, tr(u.Language, usage), nil)
			return rerr
		}
		b.fail(ctx, req, u.Language, err)
		return err
	}
	_, err = req.Reply(ctx, reply, nil)
	return err
}

func (b *Bot) handleWindow(ctx context.Context, req *router.Request) error {
	return b.updatePreference(ctx, req, txtWindowUsage, func(u domain.User, p *domain.TimingPreference) (string, bool) {
		if len(req.Args) != 1 {
			return "", false
		}
		w, err := domain.ParseWindow(req.Args[0])
		if err != nil {
			return "", false
		}
		p.Active = w
		return tr(u.Language, txtWindowSet, w.String()), true
	})
}

func (b *Bot) handlePeak(ctx context.Context, req *router.Request) error {
	return b.updatePreference(ctx, req, txtPeakUsage, func(u domain.User, p *domain.TimingPreference) (string, bool) {
		if len(req.Args) != 2 {
			return "", false
		}
		name := strings.ToLower(req.Args[0])
		idx, ok := peakNames[name]
		if !ok {
			return "", false
		}
		w, err := domain.ParseWindow(req.Args[1])
		if err != nil {
			return "", false
		}
		p.Peaks[idx] = w
		return tr(u.Language, txtPeakSet, name, w.String()), true
	})
}

func (b *Bot) handleGap(ctx context.Context, req *router.Request) error {
	return b.updatePreference(ctx, req, txtGapUsage, func(u domain.User, p *domain.TimingPreference) (string, bool) {
		if len(req.Args) != 1 {
			return "", false
		}
		h, err := strconv.Atoi(strings.TrimSuffix(req.Args[0], "h"))
		if err != nil || h < domain.MinGapHoursMin || h > domain.MinGapHoursMax {
			return "", false
		}
		p.MinGapHours = h
		return tr(u.Language, txtGapSet, h), true
	})
}

func (b *Bot) handleStyle(ctx context.Context, req *router.Request) error {
	return b.updatePreference(ctx, req, txtStyleUsage, func(u domain.User, p *domain.TimingPreference) (string, bool) {
		if len(req.Args) != 1 {
			return "", false
		}
		st, err := domain.ParseStyle(strings.ToLower(req.Args[0]))
		if err != nil {
			return "", false
		}
		p.Style = st
		return tr(u.Language, txtStyleSet, string(st)), true
	})
}

func (b *Bot) handleBoost(ctx context.Context, req *router.Request) error {
	return b.toggle(ctx, req, "boost", txtBoostSet, func(p *domain.TimingPreference, v bool) { p.MoodBoost = v })
}

func (b *Bot) handleAutoAdjust(ctx context.Context, req *router.Request) error {
	return b.toggle(ctx, req, "autoadjust", txtAutoAdjustSet, func(p *domain.TimingPreference, v bool) { p.AutoAdjust = v })
}

func (b *Bot) toggle(ctx context.Context, req *router.Request, cmd string, done textKey, set func(*domain.TimingPreference, bool)) error {
	if len(req.Args) != 1 {
		_, err := req.Reply(ctx, tr(b.language(ctx, req), txtOnOffUsage, cmd), nil)
		return err
	}
	v, err := domain.ParseOnOff(req.Args[0])
	if err != nil {
		_, err := req.Reply(ctx, tr(b.language(ctx, req), txtOnOffUsage, cmd), nil)
		return err
	}
	return b.updatePreference(ctx, req, txtOnOffUsage, func(u domain.User, p *domain.TimingPreference) (string, bool) {
		set(p, v)
		return tr(u.Language, done, onOff(u.Language, v)), true
	})
}
