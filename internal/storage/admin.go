package storage

import (
	"context"
	"database/sql"
	"time"

	"motivator/internal/domain"
)

// SendStats aggregates the send log since the given time for admin views.
func (s *SQLite) SendStats(ctx context.Context, since time.Time) (domain.SendStats, error) {
	var st domain.SendStats
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(active), 0) FROM users`,
	).Scan(&st.Users, &st.ActiveUsers); err != nil {
		return st, err
	}

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = ? AND sent_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sent_at IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = ? AND sent_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN engagement IS NOT NULL THEN 1 ELSE 0 END), 0),
			AVG(engagement)
		FROM send_records
		WHERE scheduled_at >= ?`,
		string(domain.KindScheduled), string(domain.KindMoodReminder), toMillis(since),
	).Scan(&st.Delivered, &st.Failed, &st.Reminders, &st.Engaged, &avg)
	if err != nil {
		return st, err
	}
	if avg.Valid {
		st.AvgEngage = avg.Float64
	}
	return st, nil
}
