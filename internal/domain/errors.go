package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrContentNotFound  = errors.New("content not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrAlreadyRated     = errors.New("engagement already recorded")
)

// NotFoundError reports a missing user or preference. It matches ErrNotFound.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %d not found", e.Kind, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidPreferenceError reports a malformed timing preference.
type InvalidPreferenceError struct {
	Field  string
	Reason string
}

func (e *InvalidPreferenceError) Error() string {
	return fmt.Sprintf("invalid timing preference %s: %s", e.Field, e.Reason)
}

// DeliveryError reports a failed or timed-out dispatch.
type DeliveryError struct {
	UserID  int64
	Timeout bool
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("delivery to %d timed out: %v", e.UserID, e.Err)
	}
	return fmt.Sprintf("delivery to %d failed: %v", e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
