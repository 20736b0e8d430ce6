package schedule

import (
	"context"
	"time"

	"motivator/internal/domain"
)

// Store is the persistence surface the engine reads and writes each tick.
type Store interface {
	Ping(ctx context.Context) error
	ListActiveUsers(ctx context.Context) ([]int64, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)

	// GetTimingPreference returns the stored preference, creating and persisting
	// defaults when none exist. It fails with *domain.NotFoundError for unknown users.
	GetTimingPreference(ctx context.Context, userID int64) (domain.TimingPreference, error)
	SaveTimingPreference(ctx context.Context, p domain.TimingPreference) error

	// GetRecentMoodEntries returns entries at or after since, newest first.
	GetRecentMoodEntries(ctx context.Context, userID int64, since time.Time) ([]domain.MoodEntry, error)

	// GetTodaySendCount counts delivered scheduled sends at or after dayStart.
	GetTodaySendCount(ctx context.Context, userID int64, dayStart time.Time) (int, error)
	// GetLastSendTime returns the latest delivered scheduled send, or nil.
	GetLastSendTime(ctx context.Context, userID int64) (*time.Time, error)
	AppendSendRecord(ctx context.Context, r domain.SendRecord) (int64, error)
	// GetSendHistory returns scheduled records with ScheduledAt at or after since.
	GetSendHistory(ctx context.Context, userID int64, since time.Time) ([]domain.SendRecord, error)

	RecentContentIDs(ctx context.Context, userID int64, limit int) ([]int64, error)
	MoodReminderSentSince(ctx context.Context, userID int64, since time.Time) (bool, error)
}

// ContentProvider selects content. Select returns domain.ErrContentNotFound when
// nothing matches.
type ContentProvider interface {
	Select(ctx context.Context, language string, category domain.Category, exclude []int64) (domain.ContentItem, error)
	MoodReminder(language string) string
}

// Receipt describes a completed delivery.
type Receipt struct {
	MessageID int
	At        time.Time
}

// Messenger delivers content. Failures are reported as *domain.DeliveryError.
type Messenger interface {
	Deliver(ctx context.Context, userID int64, item domain.ContentItem) (Receipt, error)
	Remind(ctx context.Context, userID int64, text string) (Receipt, error)
}
