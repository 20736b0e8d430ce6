package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseClock parses "HH:MM" (00:00..24:00).
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return ClockTime{}, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return ClockTime{}, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return ClockTime{}, errors.New("invalid minute")
	}
	return Clock(h, m), nil
}

// ParseWindow parses "HH:MM-HH:MM" (an en dash is accepted too).
// Windows wrapping midnight are rejected.
func ParseWindow(s string) (Window, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "–", "-")
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Window{}, errors.New("expected format HH:MM-HH:MM")
	}
	from, err := ParseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("from: %w", err)
	}
	to, err := ParseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("to: %w", err)
	}
	if from.Minutes() >= to.Minutes() {
		return Window{}, errors.New("start must be before end")
	}
	return Window{Start: from, End: to}, nil
}

// ParseOnOff accepts on/off, true/false, yes/no, 1/0.
func ParseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on|off, got %q", s)
	}
}
