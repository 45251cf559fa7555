// Package prayer implements the temporal core: zone-aware wall-clock
// normalization, prayer state evaluation and the alert trigger.
package prayer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "prayertimes.app/errors"
)

const dateKeyLayout = "2006-01-02"

// Clock resolves calendar dates and wall-clock minutes in one fixed named
// zone, independent of the host machine's local zone. The client evaluator
// and the server matcher must share the same Clock semantics or they will
// disagree at boundary minutes.
type Clock struct {
	loc *time.Location
}

// NewClock creates a clock bound to a named IANA zone, e.g. "Europe/London"
func NewClock(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown time zone %q", zone), err)
	}
	return &Clock{loc: loc}, nil
}

// Location returns the clock's zone
func (c *Clock) Location() *time.Location {
	return c.loc
}

// DateKey returns the calendar date an instant falls on in the clock's zone
func (c *Clock) DateKey(t time.Time) string {
	return t.In(c.loc).Format(dateKeyLayout)
}

// NextDateKey returns the date key of the day after the instant's date
func (c *Clock) NextDateKey(t time.Time) string {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc).AddDate(0, 0, 1).Format(dateKeyLayout)
}

// HHMM returns the instant's wall-clock minute in the clock's zone
func (c *Clock) HHMM(t time.Time) string {
	return t.In(c.loc).Format("15:04")
}

// Weekday reports the weekday a date key falls on
func (c *Clock) Weekday(dateKey string) (time.Weekday, bool) {
	day, err := time.ParseInLocation(dateKeyLayout, dateKey, c.loc)
	if err != nil {
		return time.Sunday, false
	}
	return day.Weekday(), true
}

// ToInstant converts a date key plus a lenient time-of-day string into an
// absolute instant in the clock's zone. ok is false when either part does
// not parse; malformed schedule input degrades to "no match" downstream.
func (c *Clock) ToInstant(dateKey, raw string) (time.Time, bool) {
	hhmm, ok := NormalizeTime(raw)
	if !ok {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dateKeyLayout, dateKey, c.loc)
	if err != nil {
		return time.Time{}, false
	}
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, c.loc), true
}

var timeSeparators = strings.NewReplacer(";", ":", ".", ":", "-", ":")

// NormalizeTime maps stray separators (';', '.', '-') to ':', strips
// whitespace, truncates to HH:MM and renders it zero-padded. ok is false
// unless the result carries two non-negative integers. Idempotent for any
// already-normalized value.
func NormalizeTime(raw string) (string, bool) {
	s := timeSeparators.Replace(raw)
	s = strings.Join(strings.Fields(s), "")
	if len(s) > 5 {
		s = s[:5]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return "", false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}
