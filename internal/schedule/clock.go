package schedule

import (
	"math"
	"time"
)

// Clock is the simulated UTC time of a planning run. It only moves forward,
// in whole seconds, and has a single writer: the Scheduler.
type Clock struct {
	now time.Time
}

// NewClock starts a clock at a site-local wall time. The wall-clock fields of
// localStart are taken as they are (its Location is ignored) and converted to
// UTC with utc = local - utcOffsetHours.
func NewClock(localStart time.Time, utcOffsetHours float64) *Clock {
	y, mo, d := localStart.Date()
	h, mi, s := localStart.Clock()
	wall := time.Date(y, mo, d, h, mi, s, 0, time.UTC)
	offset := time.Duration(math.Round(utcOffsetHours*3600)) * time.Second
	return &Clock{now: wall.Add(-offset)}
}

// NewClockUTC starts a clock at a UTC instant, truncated to the second.
func NewClockUTC(start time.Time) *Clock {
	return &Clock{now: start.UTC().Truncate(time.Second)}
}

// Now returns the current simulated UTC time.
func (c *Clock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by seconds. Non-positive values leave it unchanged.
func (c *Clock) Advance(seconds int) {
	if seconds <= 0 {
		return
	}
	c.now = c.now.Add(time.Duration(seconds) * time.Second)
}
