package session

import (
	"time"

	"github.com/scmhub/calendar"
)

// Clock answers exchange-session questions for the configured timezone:
// trading day checks, the competing-peak cutoff, and the session close used
// for time-based exits. All answers are derived from the supplied timestamp,
// never from the wall clock, so replays stay deterministic.
type Clock struct {
	location *time.Location
	nyse     *calendar.Calendar
}

// NewClock creates a session clock for the given timezone.
func NewClock(timezone string) *Clock {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Clock{
		location: loc,
		nyse:     calendar.XNYS(),
	}
}

// IsMarketDay checks if the given time falls on a trading day (not weekend/holiday).
func (c *Clock) IsMarketDay(t time.Time) bool {
	return c.nyse.IsBusinessDay(t.In(c.location))
}

// PastCutoff reports whether t is at or past the given local clock time.
func (c *Clock) PastCutoff(t time.Time, hour, minute int) bool {
	local := t.In(c.location)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, c.location)
	return !local.Before(cutoff)
}

// SessionClose returns the cash close (16:00 local) for t's trading day.
func (c *Clock) SessionClose(t time.Time) time.Time {
	local := t.In(c.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 16, 0, 0, 0, c.location)
}

// Location returns the clock's timezone location.
func (c *Clock) Location() *time.Location {
	return c.location
}
