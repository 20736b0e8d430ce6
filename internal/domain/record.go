package domain

import "time"

type SendKind string

const (
	KindScheduled    SendKind = "scheduled"
	KindMoodReminder SendKind = "mood_reminder"

	// KindOnDemand is content the user asked for with /motivate. It never
	// counts toward scheduling limits or learning.
	KindOnDemand SendKind = "on_demand"
)

// SendRecord logs one dispatch attempt. SentAt is nil for failed deliveries;
// such records count neither toward the daily ceiling nor the minimum gap.
type SendRecord struct {
	ID            int64
	UserID        int64
	Kind          SendKind
	ScheduledAt   time.Time
	SentAt        *time.Time
	Category      Category
	ContentID     int64
	MessageID     int
	Engagement    *float64       // nil until feedback arrives
	ResponseDelay *time.Duration // nil until feedback arrives
	Error         string
	CorrelationID string
}

func (r SendRecord) Delivered() bool { return r.SentAt != nil }

// Engagement scores recorded for inline feedback buttons.
const (
	EngagementLove    = 1.0
	EngagementLike    = 0.7
	EngagementDislike = 0.0
)

// SendStats is a read-only aggregate for admin views.
type SendStats struct {
	Users       int
	ActiveUsers int
	Delivered   int
	Failed      int
	Reminders   int
	Engaged     int
	AvgEngage   float64
}
