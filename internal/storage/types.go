package storage

import (
	"time"

	"motivator/internal/domain"
)

// ErrAlreadyRated is returned when feedback for a message was already recorded.
var ErrAlreadyRated = domain.ErrAlreadyRated

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means 5s
}
