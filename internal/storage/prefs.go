package storage

import (
	"context"
	"database/sql"
	"errors"

	"motivator/internal/domain"
)

// GetTimingPreference returns the stored preference, inserting the system
// defaults first if the user has none. Concurrent first calls persist once.
func (s *SQLite) GetTimingPreference(ctx context.Context, userID int64) (domain.TimingPreference, error) {
	if err := s.userExists(ctx, userID); err != nil {
		return domain.TimingPreference{}, err
	}
	def := domain.DefaultTimingPreference(userID)
	def.UpdatedAt = s.now()
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO timing_preferences (`+prefColumns+`) VALUES (`+prefPlaceholders+`)`, prefArgs(def)...); err != nil {
		return domain.TimingPreference{}, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+prefColumns+` FROM timing_preferences WHERE user_id = ?`, userID)
	return scanPref(row)
}

// SaveTimingPreference validates and stores p.
func (s *SQLite) SaveTimingPreference(ctx context.Context, p domain.TimingPreference) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.userExists(ctx, p.UserID); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO timing_preferences (`+prefColumns+`) VALUES (`+prefPlaceholders+`)`, prefArgs(p)...)
	return err
}

func (s *SQLite) userExists(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Kind: "user", ID: id}
	}
	return err
}

const prefColumns = `user_id, active_start, active_end, min_gap_hours, style, mood_boost, auto_adjust,
	morning_start, morning_end, afternoon_start, afternoon_end, evening_start, evening_end, updated_at`

const prefPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

func prefArgs(p domain.TimingPreference) []any {
	return []any{
		p.UserID, p.Active.Start.Minutes(), p.Active.End.Minutes(), p.MinGapHours, string(p.Style),
		boolToInt(p.MoodBoost), boolToInt(p.AutoAdjust),
		p.Peaks[0].Start.Minutes(), p.Peaks[0].End.Minutes(),
		p.Peaks[1].Start.Minutes(), p.Peaks[1].End.Minutes(),
		p.Peaks[2].Start.Minutes(), p.Peaks[2].End.Minutes(),
		toMillis(p.UpdatedAt),
	}
}

func scanPref(row *sql.Row) (domain.TimingPreference, error) {
	var (
		p              domain.TimingPreference
		aS, aE         int
		style          string
		boost, adjust  int
		m0, m1, a0, a1 int
		e0, e1         int
		updated        int64
	)
	if err := row.Scan(&p.UserID, &aS, &aE, &p.MinGapHours, &style, &boost, &adjust,
		&m0, &m1, &a0, &a1, &e0, &e1, &updated); err != nil {
		return domain.TimingPreference{}, err
	}
	win := func(a, b int) domain.Window {
		return domain.Window{Start: domain.ClockFromMinutes(a), End: domain.ClockFromMinutes(b)}
	}
	p.Active = win(aS, aE)
	p.Style = domain.DistributionStyle(style)
	p.MoodBoost = boost != 0
	p.AutoAdjust = adjust != 0
	p.Peaks = [3]domain.Window{win(m0, m1), win(a0, a1), win(e0, e1)}
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}
