package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"motivator/internal/domain"
)

// UpsertUser registers a user or refreshes profile fields of an existing one.
// Language, frequency and the active flag are only set on insert. created
// reports whether a new row was inserted.
func (s *SQLite) UpsertUser(ctx context.Context, u domain.User) (created bool, err error) {
	now := s.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	lang := strings.TrimSpace(u.Language)
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	freq := u.Frequency
	if freq == 0 {
		freq = domain.DefaultFrequency
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, language, timezone, frequency, active, created_at, last_active)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		u.ID, u.Username, u.FirstName, lang, u.Timezone, domain.ClampFrequency(freq),
		toMillis(u.CreatedAt), toMillis(now),
	)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET username = ?, first_name = ?, last_active = ?
		WHERE user_id = ?`,
		u.Username, u.FirstName, toMillis(now), u.ID,
	)
	return false, err
}

func (s *SQLite) GetUser(ctx context.Context, id int64) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, language, timezone, frequency, active, created_at
		FROM users WHERE user_id = ?`, id)

	var (
		u       domain.User
		active  int
		created int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.Language, &u.Timezone, &u.Frequency, &active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, &domain.NotFoundError{Kind: "user", ID: id}
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Active = active != 0
	u.CreatedAt = fromMillis(created)
	return u, nil
}

// ListActiveUsers returns ids of non-paused users in ascending order.
func (s *SQLite) ListActiveUsers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users WHERE active = 1 ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) SetUserActive(ctx context.Context, id int64, active bool) error {
	return s.updateUser(ctx, id, `UPDATE users SET active = ?, last_active = ? WHERE user_id = ?`, boolToInt(active), toMillis(s.now()), id)
}

// SetFrequency stores f clamped to the supported range.
func (s *SQLite) SetFrequency(ctx context.Context, id int64, f int) error {
	return s.updateUser(ctx, id, `UPDATE users SET frequency = ? WHERE user_id = ?`, domain.ClampFrequency(f), id)
}

func (s *SQLite) SetLanguage(ctx context.Context, id int64, lang string) error {
	return s.updateUser(ctx, id, `UPDATE users SET language = ? WHERE user_id = ?`, strings.TrimSpace(lang), id)
}

func (s *SQLite) SetTimezone(ctx context.Context, id int64, tz string) error {
	return s.updateUser(ctx, id, `UPDATE users SET timezone = ? WHERE user_id = ?`, strings.TrimSpace(tz), id)
}

func (s *SQLite) updateUser(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "user", ID: id}
	}
	return nil
}
