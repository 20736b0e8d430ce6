package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"motivator/internal/domain"
)

// AddMoodEntry stores a mood entry and returns its id.
func (s *SQLite) AddMoodEntry(ctx context.Context, e domain.MoodEntry) (int64, error) {
	if !domain.ValidMoodScore(e.Score) {
		return 0, fmt.Errorf("mood score %d out of range %d..%d", e.Score, domain.MinMoodScore, domain.MaxMoodScore)
	}
	if err := s.userExists(ctx, e.UserID); err != nil {
		return 0, err
	}
	if e.At.IsZero() {
		e.At = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_entries (user_id, score, note, created_at) VALUES (?, ?, ?, ?)`,
		e.UserID, e.Score, strings.TrimSpace(e.Note), toMillis(e.At),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRecentMoodEntries returns entries at or after since, newest first.
func (s *SQLite) GetRecentMoodEntries(ctx context.Context, userID int64, since time.Time) ([]domain.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, score, note, created_at
		FROM mood_entries
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC`,
		userID, toMillis(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MoodEntry
	for rows.Next() {
		var (
			e  domain.MoodEntry
			at int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Score, &e.Note, &at); err != nil {
			return nil, err
		}
		e.At = fromMillis(at)
		out = append(out, e)
	}
	return out, rows.Err()
}
