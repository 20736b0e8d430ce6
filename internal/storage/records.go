package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"motivator/internal/domain"
)

const recordColumns = `id, user_id, kind, scheduled_at, sent_at, category, content_id, message_id,
	engagement, response_ms, error, correlation_id`

func (s *SQLite) AppendSendRecord(ctx context.Context, r domain.SendRecord) (int64, error) {
	if r.Kind == "" {
		r.Kind = domain.KindScheduled
	}
	category := ""
	if r.Kind != domain.KindMoodReminder {
		category = r.Category.String()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO send_records (user_id, kind, scheduled_at, sent_at, category, content_id, message_id,
			engagement, response_ms, error, correlation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, string(r.Kind), toMillis(r.ScheduledAt), toNullMillis(r.SentAt), category,
		r.ContentID, r.MessageID, nullFloat(r.Engagement), nullDurationMillis(r.ResponseDelay),
		r.Error, r.CorrelationID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTodaySendCount counts delivered scheduled sends at or after dayStart.
func (s *SQLite) GetTodaySendCount(ctx context.Context, userID int64, dayStart time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM send_records
		WHERE user_id = ? AND kind = ? AND sent_at IS NOT NULL AND sent_at >= ?`,
		userID, string(domain.KindScheduled), toMillis(dayStart),
	).Scan(&n)
	return n, err
}

// GetLastSendTime returns the latest delivered scheduled send, or nil.
func (s *SQLite) GetLastSendTime(ctx context.Context, userID int64) (*time.Time, error) {
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(sent_at) FROM send_records
		WHERE user_id = ? AND kind = ? AND sent_at IS NOT NULL`,
		userID, string(domain.KindScheduled),
	).Scan(&last)
	if err != nil {
		return nil, err
	}
	return fromNullMillis(last), nil
}

// GetSendHistory returns scheduled records with scheduled_at at or after since, oldest first.
func (s *SQLite) GetSendHistory(ctx context.Context, userID int64, since time.Time) ([]domain.SendRecord, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM send_records
		WHERE user_id = ? AND kind = ? AND scheduled_at >= ?
		ORDER BY scheduled_at, id`,
		userID, string(domain.KindScheduled), toMillis(since),
	)
}

// RecentContentIDs returns content ids of the latest delivered scheduled sends.
func (s *SQLite) RecentContentIDs(ctx context.Context, userID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id FROM send_records
		WHERE user_id = ? AND kind = ? AND sent_at IS NOT NULL
		ORDER BY sent_at DESC, id DESC
		LIMIT ?`,
		userID, string(domain.KindScheduled), limit,
	)
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

func (s *SQLite) MoodReminderSentSince(ctx context.Context, userID int64, since time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM send_records
		WHERE user_id = ? AND kind = ? AND sent_at IS NOT NULL AND sent_at >= ?`,
		userID, string(domain.KindMoodReminder), toMillis(since),
	).Scan(&n)
	return n > 0, err
}

// RecordEngagement stores feedback for the content message messageID. The
// first feedback wins; later calls return ErrAlreadyRated. The response delay
// is measured from the delivery time.
func (s *SQLite) RecordEngagement(ctx context.Context, userID int64, messageID int, score float64, at time.Time) (domain.SendRecord, error) {
	rows, err := s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM send_records
		WHERE user_id = ? AND message_id = ? AND kind IN (?, ?) AND sent_at IS NOT NULL
		ORDER BY id DESC LIMIT 1`,
		userID, messageID, string(domain.KindScheduled), string(domain.KindOnDemand),
	)
	if err != nil {
		return domain.SendRecord{}, err
	}
	if len(rows) == 0 {
		return domain.SendRecord{}, &domain.NotFoundError{Kind: "message", ID: int64(messageID)}
	}
	r := rows[0]
	if r.Engagement != nil {
		return r, ErrAlreadyRated
	}

	delay := max(at.Sub(*r.SentAt), 0)
	res, err := s.db.ExecContext(ctx, `
		UPDATE send_records SET engagement = ?, response_ms = ?
		WHERE id = ? AND engagement IS NULL`,
		score, delay.Milliseconds(), r.ID,
	)
	if err != nil {
		return domain.SendRecord{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r, ErrAlreadyRated
	}
	r.Engagement = &score
	r.ResponseDelay = &delay
	return r, nil
}

// ListSendRecords returns the latest records of a user (all kinds), newest first.
func (s *SQLite) ListSendRecords(ctx context.Context, userID int64, limit int) ([]domain.SendRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM send_records
		WHERE user_id = ?
		ORDER BY scheduled_at DESC, id DESC
		LIMIT ?`,
		userID, limit,
	)
}

func (s *SQLite) queryRecords(ctx context.Context, query string, args ...any) ([]domain.SendRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SendRecord
	for rows.Next() {
		var (
			r          domain.SendRecord
			kind, cat  string
			scheduled  int64
			sent       sql.NullInt64
			engagement sql.NullFloat64
			responseMS sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &kind, &scheduled, &sent, &cat, &r.ContentID, &r.MessageID,
			&engagement, &responseMS, &r.Error, &r.CorrelationID); err != nil {
			return nil, err
		}
		r.Kind = domain.SendKind(kind)
		r.ScheduledAt = fromMillis(scheduled)
		r.SentAt = fromNullMillis(sent)
		if cat != "" {
			c, err := domain.ParseCategory(cat)
			if err != nil {
				return nil, errors.Join(errors.New("send record has unknown category"), err)
			}
			r.Category = c
		}
		if engagement.Valid {
			v := engagement.Float64
			r.Engagement = &v
		}
		if responseMS.Valid {
			d := time.Duration(responseMS.Int64) * time.Millisecond
			r.ResponseDelay = &d
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullDurationMillis(d *time.Duration) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.Milliseconds(), Valid: true}
}
