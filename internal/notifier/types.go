package notifier

import (
	"time"

	"motivator/internal/domain"
)

// Config controls the outbound delivery policy.
type Config struct {
	RatePerSec int
	// ParseMode is passed to the transport ("Markdown", "HTML" or empty).
	ParseMode string
	// FeedbackButtons attaches love/like/dislike buttons to scheduled content.
	FeedbackButtons bool
}

func DefaultConfig() Config {
	return Config{
		RatePerSec:      20,
		ParseMode:       "Markdown",
		FeedbackButtons: true,
	}
}

type Kind string

const (
	KindContent  Kind = "content"
	KindReminder Kind = "reminder"
)

type HistoryItem struct {
	At        time.Time
	UserID    int64
	Kind      Kind
	ContentID int64
	MessageID int
	Err       string
}

// DeliveryEvent is published on the event bus after every delivery attempt.
type DeliveryEvent struct {
	UserID    int64     `json:"user_id"`
	Kind      Kind      `json:"kind"`
	ContentID int64     `json:"content_id,omitempty"`
	MessageID int       `json:"message_id,omitempty"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

// Feedback callback payloads attached to scheduled content.
const (
	FeedbackLove    = "fb:love"
	FeedbackLike    = "fb:like"
	FeedbackDislike = "fb:dislike"
)

// FeedbackScore maps a feedback payload to its engagement score.
func FeedbackScore(data string) (float64, bool) {
	switch data {
	case FeedbackLove:
		return domain.EngagementLove, true
	case FeedbackLike:
		return domain.EngagementLike, true
	case FeedbackDislike:
		return domain.EngagementDislike, true
	default:
		return 0, false
	}
}
