// SPDX-License-Identifier: MIT

// Package timeutil holds the clock-time arithmetic behind the countdown:
// parsing HH:MM values, projecting them onto today, and formatting the
// remaining duration for the tooltip and the tray badge.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidClock reports a value that is not a valid 24-hour HH:MM time.
var ErrInvalidClock = errors.New("timeutil: invalid clock time")

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

// Parse converts an "HH:MM" string into a Clock. Single-digit hours are
// accepted ("7:30"); the canonical form is always zero-padded.
func Parse(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// String renders the canonical zero-padded form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// OnDay projects the clock time onto the date of the given instant.
func (c Clock) OnDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// MinutesUntil returns the rounded number of minutes from now until the
// target time today, clamped to zero. The target never rolls to tomorrow: a
// leave time already in the past means "you may already leave" and yields 0.
func MinutesUntil(now time.Time, target Clock) int {
	mins := int(math.Round(target.OnDay(now).Sub(now).Minutes()))
	if mins < 0 {
		return 0
	}
	return mins
}

// FormatDuration renders a minute count as "2h 5m", "59m" or "0m".
func FormatDuration(mins int) string {
	if mins <= 0 {
		return "0m"
	}
	h := mins / 60
	m := mins % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatShort renders the compact badge form: hours only once at least one
// full hour remains, minutes otherwise. The badge glyph has room for about
// three characters.
func FormatShort(mins int) string {
	if mins <= 0 {
		return "0m"
	}
	if h := mins / 60; h > 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dm", mins)
}
