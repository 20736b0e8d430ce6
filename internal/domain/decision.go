package domain

// Reason explains a per-tick decision.
type Reason string

const (
	ReasonSend          Reason = "send"
	ReasonPaused        Reason = "paused"
	ReasonOutsideWindow Reason = "outside_window"
	ReasonDrawMiss      Reason = "draw_miss"
	ReasonMinGap        Reason = "min_gap"
	ReasonDailyCeiling  Reason = "daily_ceiling"
)

// Decision is the ephemeral per-tick outcome for one user. It is never persisted.
type Decision struct {
	UserID       int64
	Send         bool
	Reason       Reason
	CategoryHint Category
	Probability  float64
	Boost        float64
}
