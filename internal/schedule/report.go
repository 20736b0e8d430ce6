package schedule

import (
	"time"

	"motivator/internal/domain"
)

// UserOutcome is the result of evaluating one user in one tick.
type UserOutcome struct {
	UserID    int64           `json:"user_id"`
	Decision  domain.Decision `json:"decision"`
	Delivered bool            `json:"delivered"`
	Reminder  string          `json:"reminder,omitempty"` // "sent" or "failed"
	Err       string          `json:"error,omitempty"`
}

// TickReport summarizes a tick. It is published on the event bus and kept as
// the last-tick snapshot for debugging.
type TickReport struct {
	ID          string        `json:"id"`
	At          time.Time     `json:"at"`
	Took        time.Duration `json:"took"`
	Users       int           `json:"users"`
	Sent        int           `json:"sent"`
	Failed      int           `json:"failed"`
	Vetoed      int           `json:"vetoed"`
	Reminders   int           `json:"reminders"`
	Errors      int           `json:"errors"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Outcomes    []UserOutcome `json:"outcomes,omitempty"`
}

func (r *TickReport) add(o UserOutcome) {
	r.Users++
	r.Outcomes = append(r.Outcomes, o)
	switch {
	case o.Delivered:
		r.Sent++
	case o.Decision.Send:
		r.Failed++
	case o.Decision.Reason == domain.ReasonMinGap || o.Decision.Reason == domain.ReasonDailyCeiling:
		r.Vetoed++
	}
	if o.Reminder == "sent" {
		r.Reminders++
	}
	if o.Err != "" {
		r.Errors++
	}
}
